package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Options is the closed set of transformation parameters. Every field is
// optional; unset fields are excluded from cache-key derivation, so an absent
// option and an explicit value always produce different keys.
type Options struct {
	Width     *int    `json:"width,omitempty" validate:"omitempty,gt=0,lte=10000"`
	Height    *int    `json:"height,omitempty" validate:"omitempty,gt=0,lte=10000"`
	Format    *string `json:"format,omitempty" validate:"omitempty,oneof=jpg jpeg png gif webp bmp tif tiff"`
	Quality   *int    `json:"quality,omitempty" validate:"omitempty,gte=1,lte=100"`
	Fit       *string `json:"fit,omitempty" validate:"omitempty,oneof=cover contain fill inside outside"`
	Rotate    *int    `json:"rotate,omitempty" validate:"omitempty,gte=-360,lte=360"`
	Grayscale *bool   `json:"grayscale,omitempty"`
	Flip      *bool   `json:"flip,omitempty"`
	Flop      *bool   `json:"flop,omitempty"`
}

var optionsValidator = validator.New()

// Validate checks option bounds at the API boundary.
func (o Options) Validate() error {
	return optionsValidator.Struct(o)
}

// IsEmpty reports whether no option is set.
func (o Options) IsEmpty() bool {
	return len(o.entries()) == 0
}

// entries returns the defined options as name/value pairs sorted by name.
// The option names are fixed and listed here in lexicographic order, so no
// sort pass is needed.
func (o Options) entries() []entry {
	var out []entry
	if o.Fit != nil {
		out = append(out, entry{"fit", *o.Fit})
	}
	if o.Flip != nil {
		out = append(out, entry{"flip", *o.Flip})
	}
	if o.Flop != nil {
		out = append(out, entry{"flop", *o.Flop})
	}
	if o.Format != nil {
		out = append(out, entry{"format", *o.Format})
	}
	if o.Grayscale != nil {
		out = append(out, entry{"grayscale", *o.Grayscale})
	}
	if o.Height != nil {
		out = append(out, entry{"height", *o.Height})
	}
	if o.Quality != nil {
		out = append(out, entry{"quality", *o.Quality})
	}
	if o.Rotate != nil {
		out = append(out, entry{"rotate", *o.Rotate})
	}
	if o.Width != nil {
		out = append(out, entry{"width", *o.Width})
	}
	return out
}

type entry struct {
	name  string
	value interface{}
}

// ParseOptions builds Options from raw string parameters (query values).
// Unknown parameter names are ignored; malformed values are errors.
func ParseOptions(params map[string]string) (Options, error) {
	var opts Options
	for name, raw := range params {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		switch name {
		case "width":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("invalid width %q", value)
			}
			opts.Width = &n
		case "height":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("invalid height %q", value)
			}
			opts.Height = &n
		case "quality":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("invalid quality %q", value)
			}
			opts.Quality = &n
		case "rotate":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("invalid rotate %q", value)
			}
			opts.Rotate = &n
		case "format":
			f := strings.ToLower(value)
			opts.Format = &f
		case "fit":
			f := strings.ToLower(value)
			opts.Fit = &f
		case "grayscale":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return opts, fmt.Errorf("invalid grayscale %q", value)
			}
			opts.Grayscale = &b
		case "flip":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return opts, fmt.Errorf("invalid flip %q", value)
			}
			opts.Flip = &b
		case "flop":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return opts, fmt.Errorf("invalid flop %q", value)
			}
			opts.Flop = &b
		}
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
