package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type Anchor string

const (
	AnchorBottomRight Anchor = "bottom-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorTopLeft     Anchor = "top-left"
	AnchorCenter      Anchor = "center"

	watermarkPadding = 20
	minFontSize      = 12.0
	maxFontSize      = 96.0
	// smallest size the fitting loop shrinks to before shortening the text
	minFitFontSize = 6.0
	// font size as a fraction of image width
	fontScale = 1.0 / 25

	errFaceFmt = "failed to create watermark face: %w"
)

var (
	watermarkFill   = color.NRGBA{R: 255, G: 255, B: 255, A: 170}
	watermarkShadow = color.NRGBA{R: 0, G: 0, B: 0, A: 140}
)

// ParseAnchor falls back to bottom-right for unknown values.
func ParseAnchor(s string) Anchor {
	switch a := Anchor(s); a {
	case AnchorBottomRight, AnchorBottomLeft, AnchorTopRight, AnchorTopLeft, AnchorCenter:
		return a
	}
	return AnchorBottomRight
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// textOrigin returns the top-left corner of a textW×textH box placed at
// anchor, kept at least watermarkPadding from every edge when it fits.
func textOrigin(width, height, textW, textH int, anchor Anchor) image.Point {
	var x, y int
	switch anchor {
	case AnchorBottomLeft, AnchorTopLeft:
		x = watermarkPadding
	case AnchorCenter:
		x = (width - textW) / 2
	default:
		x = width - watermarkPadding - textW
	}
	switch anchor {
	case AnchorTopLeft, AnchorTopRight:
		y = watermarkPadding
	case AnchorCenter:
		y = (height - textH) / 2
	default:
		y = height - watermarkPadding - textH
	}

	return image.Pt(
		clamp(x, watermarkPadding, width-watermarkPadding-textW),
		clamp(y, watermarkPadding, height-watermarkPadding-textH),
	)
}

func fontSize(width int) float64 {
	size := float64(width) * fontScale
	if size < minFontSize {
		return minFontSize
	}
	if size > maxFontSize {
		return maxFontSize
	}
	return size
}

func (p *Pipeline) newFace(size float64) (font.Face, error) {
	face, err := opentype.NewFace(p.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf(errFaceFmt, err)
	}
	return face, nil
}

func textBox(face font.Face, text string) (w, h int) {
	m := face.Metrics()
	return font.MeasureString(face, text).Ceil(), m.Ascent.Ceil() + m.Descent.Ceil()
}

// fitText picks the largest face, starting from fontSize(width), at which
// text fits inside the image minus watermarkPadding on every side. Below
// minFitFontSize the text is shortened instead, possibly to nothing.
func (p *Pipeline) fitText(width, height int, text string) (font.Face, string, float64, error) {
	availW := width - 2*watermarkPadding
	availH := height - 2*watermarkPadding
	size := fontSize(width)

	for {
		face, err := p.newFace(size)
		if err != nil {
			return nil, "", 0, err
		}
		w, h := textBox(face, text)
		if w <= availW && h <= availH {
			return face, text, size, nil
		}
		if size <= minFitFontSize {
			return face, truncateToWidth(face, text, availW), size, nil
		}
		face.Close()

		next := size * 0.9
		if w > availW && availW > 0 {
			next = math.Min(next, size*float64(availW)/float64(w))
		}
		size = math.Max(next, minFitFontSize)
	}
}

func truncateToWidth(face font.Face, text string, maxW int) string {
	runes := []rune(text)
	for len(runes) > 0 && font.MeasureString(face, string(runes)).Ceil() > maxW {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

func (p *Pipeline) watermark(img image.Image, text string, anchor Anchor) (*image.RGBA, error) {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	face, text, size, err := p.fitText(b.Dx(), b.Dy(), text)
	if err != nil {
		return nil, err
	}
	defer face.Close()
	if text == "" {
		return dst, nil
	}

	ascent := face.Metrics().Ascent.Ceil()
	textW, textH := textBox(face, text)

	origin := textOrigin(b.Dx(), b.Dy(), textW, textH, ParseAnchor(string(anchor)))
	baseline := origin.Y + ascent
	shadow := int(size / 16)
	if shadow < 1 {
		shadow = 1
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(watermarkShadow),
		Face: face,
		Dot:  fixed.P(origin.X+shadow, baseline+shadow),
	}
	d.DrawString(text)

	d.Src = image.NewUniform(watermarkFill)
	d.Dot = fixed.P(origin.X, baseline)
	d.DrawString(text)

	return dst, nil
}
