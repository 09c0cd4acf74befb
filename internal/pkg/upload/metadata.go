package upload

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"

	"github.com/elvish-ishaan/dotformer/app/models"
)

func init() {
	// Register Nikon and Canon maker notes
	exif.RegisterParsers(mknote.All...)
}

// ExtractMetadata fills the asset's dimensions and EXIF fields from the
// uploaded bytes. Missing or unreadable metadata is not an error; plenty of
// valid images carry none.
func ExtractMetadata(asset *models.Asset, data []byte) {
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		asset.Width = cfg.Width
		asset.Height = cfg.Height
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debugf("[Upload] No EXIF data for %s: %v", asset.UUID, err)
		return
	}

	if m, err := x.Get(exif.Model); err == nil {
		model := strings.TrimSpace(strings.Trim(m.String(), `"`))
		if model != "" {
			asset.CameraModel = &model
		}
	}

	if dt, err := x.DateTime(); err == nil {
		asset.TakenAt = &dt
	}
}
