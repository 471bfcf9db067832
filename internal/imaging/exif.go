package imaging

import (
	"bytes"
	"math"
	"math/big"
	"strings"

	"gallery-service/internal/domain/photo"

	"github.com/rwcarlsen/goexif/exif"
)

// extractMetadata reads what EXIF the image carries. Missing or malformed
// tags leave the corresponding field unset; a decoder panic on a corrupt
// block yields empty metadata.
func extractMetadata(data []byte) (m photo.Metadata) {
	defer func() {
		if r := recover(); r != nil {
			m = photo.Metadata{}
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return m
	}

	m.CameraMake = stringTag(x, exif.Make)
	m.CameraModel = stringTag(x, exif.Model)
	m.Lens = stringTag(x, exif.LensModel)
	m.FocalLength = floatTag(x, exif.FocalLength)
	m.FNumber = floatTag(x, exif.FNumber)

	if r := ratTag(x, exif.ExposureTime); r != nil {
		m.ExposureTime = r.RatString()
	}
	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil && iso > 0 {
			m.ISO = &iso
		}
	}
	if t, err := x.DateTime(); err == nil {
		m.CapturedAt = &t
	}
	if lat, long, err := x.LatLong(); err == nil && finite(lat) && finite(long) {
		m.GPS = &photo.GPS{Latitude: lat, Longitude: long}
	}

	return m
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

// ratTag returns a positive rational tag value. Cameras write 0/0 for
// unknown values, so a zero denominator counts as absent.
func ratTag(x *exif.Exif, name exif.FieldName) *big.Rat {
	tag, err := x.Get(name)
	if err != nil || tag.Count == 0 {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	r := new(big.Rat).SetFrac64(num, den)
	if r.Sign() <= 0 {
		return nil
	}
	return r
}

func floatTag(x *exif.Exif, name exif.FieldName) *float64 {
	r := ratTag(x, name)
	if r == nil {
		return nil
	}
	f, _ := r.Float64()
	return &f
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
