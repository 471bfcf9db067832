package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"gallery-service/internal/domain/photo"
	apperrors "gallery-service/pkg/errors"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	ThumbnailSize  = 300
	PreviewMaxSize = 1200
	DefaultQuality = 85

	errDecodeFmt = "%s could not be decoded"
	errEncodeFmt = "failed to encode %s: %w"
	errFontFmt   = "failed to load watermark font: %w"
)

// Rendition is one encoded JPEG output.
type Rendition struct {
	Data   []byte
	Width  int
	Height int
}

type Result struct {
	Original    Rendition
	Thumbnail   Rendition
	Preview     Rendition
	Watermarked *Rendition
	Metadata    photo.Metadata
}

type WatermarkOptions struct {
	Text   string
	Anchor Anchor
}

type Options struct {
	Quality   int
	Watermark *WatermarkOptions
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	font *opentype.Font
}

func NewPipeline() (*Pipeline, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf(errFontFmt, err)
	}
	return &Pipeline{font: f}, nil
}

// Process decodes data once and derives every rendition from it. The
// watermark is composited onto the re-encoded original so the watermarked
// copy matches what viewers of the original see.
func (p *Pipeline) Process(data []byte, originalName string, opts Options) (*Result, error) {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.InvalidImage(fmt.Sprintf(errDecodeFmt, originalName))
	}
	src = flatten(src)
	bounds := src.Bounds()

	res := &Result{Metadata: extractMetadata(data)}
	res.Metadata.Width = bounds.Dx()
	res.Metadata.Height = bounds.Dy()
	res.Metadata.Format = format

	if res.Original, err = encode(src, quality, "original"); err != nil {
		return nil, err
	}
	if res.Thumbnail, err = encode(cover(src, ThumbnailSize), quality, "thumbnail"); err != nil {
		return nil, err
	}
	if res.Preview, err = encode(resize.Thumbnail(PreviewMaxSize, PreviewMaxSize, src, resize.Lanczos3), quality, "preview"); err != nil {
		return nil, err
	}

	if opts.Watermark != nil && opts.Watermark.Text != "" {
		base, err := jpeg.Decode(bytes.NewReader(res.Original.Data))
		if err != nil {
			return nil, fmt.Errorf(errEncodeFmt, "watermark base", err)
		}
		marked, err := p.watermark(base, opts.Watermark.Text, opts.Watermark.Anchor)
		if err != nil {
			return nil, err
		}
		wm, err := encode(marked, quality, "watermarked")
		if err != nil {
			return nil, err
		}
		res.Watermarked = &wm
	}

	return res, nil
}

func encode(img image.Image, quality int, role string) (Rendition, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Rendition{}, fmt.Errorf(errEncodeFmt, role, err)
	}
	b := img.Bounds()
	return Rendition{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// flatten composites images with transparency onto white so JPEG encoding
// does not turn transparent areas black.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// cover scales the short side to size and crops the centre to a size×size
// square. Small sources are scaled up so the result is always exact.
func cover(img image.Image, size int) image.Image {
	b := img.Bounds()

	var scaled image.Image
	if b.Dx() >= b.Dy() {
		scaled = resize.Resize(0, uint(size), img, resize.Lanczos3)
	} else {
		scaled = resize.Resize(uint(size), 0, img, resize.Lanczos3)
	}

	sb := scaled.Bounds()
	offset := image.Pt(sb.Min.X+(sb.Dx()-size)/2, sb.Min.Y+(sb.Dy()-size)/2)
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), scaled, offset, draw.Src)
	return dst
}
