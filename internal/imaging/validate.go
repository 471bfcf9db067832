// Package imaging validates uploads and derives the stored renditions of a
// photo: a re-encoded original, a square thumbnail, a bounded preview and an
// optional watermarked copy.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	apperrors "gallery-service/pkg/errors"

	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxBytes     = int64(50 * 1024 * 1024)
	DefaultMinDimension = 100
	DefaultMaxDimension = 10000

	errEmptyImage     = "image is empty"
	errTooLargeFmt    = "image is %d bytes, limit is %d"
	errUnreadable     = "image dimensions could not be read"
	errDimensionsFmt  = "image is %dx%d, allowed range is %dx%d to %dx%d"
	errUnsupportedFmt = "unsupported image format %q"
)

var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

type Limits struct {
	MaxBytes     int64
	MinDimension int
	MaxDimension int
}

func DefaultLimits() Limits {
	return Limits{
		MaxBytes:     DefaultMaxBytes,
		MinDimension: DefaultMinDimension,
		MaxDimension: DefaultMaxDimension,
	}
}

type Dimensions struct {
	Width  int
	Height int
	Format string
}

// Validate checks size and dimensions from the image header only; pixels
// are not decoded.
func Validate(data []byte, limits Limits) (*Dimensions, error) {
	if len(data) == 0 {
		return nil, apperrors.InvalidImage(errEmptyImage)
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, apperrors.InvalidImage(fmt.Sprintf(errTooLargeFmt, len(data), limits.MaxBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperrors.InvalidImage(errUnreadable)
	}
	if !supportedFormats[format] {
		return nil, apperrors.InvalidImage(fmt.Sprintf(errUnsupportedFmt, format))
	}

	if cfg.Width < limits.MinDimension || cfg.Height < limits.MinDimension ||
		(limits.MaxDimension > 0 && (cfg.Width > limits.MaxDimension || cfg.Height > limits.MaxDimension)) {
		return nil, apperrors.InvalidImage(fmt.Sprintf(errDimensionsFmt,
			cfg.Width, cfg.Height,
			limits.MinDimension, limits.MinDimension,
			limits.MaxDimension, limits.MaxDimension))
	}

	return &Dimensions{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
