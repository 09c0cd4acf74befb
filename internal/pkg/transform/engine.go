package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Error kinds surfaced by the transformation pipeline.
var (
	// ErrSourceNotFound signals the source asset is missing from the store.
	ErrSourceNotFound = errors.New("source asset not found")
	// ErrTransformFailed signals a decode/encode/engine failure. Not retried
	// automatically; the input will fail the same way again.
	ErrTransformFailed = errors.New("transformation failed")
)

const defaultQuality = 80

// Engine is the pure transformation function: source bytes plus options in,
// transformed bytes out. Implementations must be side-effect free.
type Engine interface {
	Transform(src []byte, opts Options) ([]byte, error)
}

// ImagingEngine implements Engine on the imaging package, with WebP encoding
// via the libwebp bindings.
type ImagingEngine struct{}

// NewImagingEngine creates the default transform engine
func NewImagingEngine() *ImagingEngine {
	return &ImagingEngine{}
}

// Transform applies resize/fit, rotation, mirroring, grayscale and format
// conversion to the source image bytes.
func (e *ImagingEngine) Transform(src []byte, opts Options) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrTransformFailed, err)
	}

	img = applyResize(img, opts)

	if opts.Rotate != nil && *opts.Rotate%360 != 0 {
		img = applyRotate(img, *opts.Rotate)
	}
	if opts.Flip != nil && *opts.Flip {
		img = imaging.FlipV(img)
	}
	if opts.Flop != nil && *opts.Flop {
		img = imaging.FlipH(img)
	}
	if opts.Grayscale != nil && *opts.Grayscale {
		img = imaging.Grayscale(img)
	}

	format := resolveFormat(src, opts)
	quality := defaultQuality
	if opts.Quality != nil {
		quality = *opts.Quality
	}

	out, err := encode(img, format, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", ErrTransformFailed, format, err)
	}
	return out, nil
}

func applyResize(img image.Image, opts Options) image.Image {
	width, height := 0, 0
	if opts.Width != nil {
		width = *opts.Width
	}
	if opts.Height != nil {
		height = *opts.Height
	}
	if width == 0 && height == 0 {
		return img
	}

	// Single-dimension resizes always preserve aspect ratio.
	if width == 0 || height == 0 {
		return imaging.Resize(img, width, height, imaging.Lanczos)
	}

	fit := "cover"
	if opts.Fit != nil {
		fit = *opts.Fit
	}
	switch fit {
	case "contain", "inside":
		return imaging.Fit(img, width, height, imaging.Lanczos)
	case "fill", "outside":
		return imaging.Resize(img, width, height, imaging.Lanczos)
	default: // cover
		return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	}
}

func applyRotate(img image.Image, degrees int) image.Image {
	// Positive degrees rotate clockwise; imaging rotates counter-clockwise.
	normalized := ((degrees % 360) + 360) % 360
	switch normalized {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, -float64(degrees), color.White)
	}
}

// resolveFormat picks the output format: an explicit option wins, otherwise
// the source's own format, otherwise jpg.
func resolveFormat(src []byte, opts Options) string {
	if opts.Format != nil {
		return *opts.Format
	}
	detected := http.DetectContentType(src)
	if strings.HasPrefix(detected, "image/") {
		f := strings.TrimPrefix(detected, "image/")
		switch f {
		case "jpeg", "png", "gif", "webp", "bmp", "tiff":
			return f
		}
	}
	return "jpg"
}

func encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpg", "jpeg":
		err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
		return buf.Bytes(), err
	case "png":
		err := imaging.Encode(&buf, img, imaging.PNG)
		return buf.Bytes(), err
	case "gif":
		err := imaging.Encode(&buf, img, imaging.GIF)
		return buf.Bytes(), err
	case "bmp":
		err := imaging.Encode(&buf, img, imaging.BMP)
		return buf.Bytes(), err
	case "tif", "tiff":
		err := imaging.Encode(&buf, img, imaging.TIFF)
		return buf.Bytes(), err
	case "webp":
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return nil, err
		}
		if err := webp.Encode(&buf, img, options); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
