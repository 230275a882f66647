// Package raster converts decoded pixel buffers into a canonical RGBA layout
// and recompresses them into bounded JPEGs for vision models.
package raster

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/spherical/source-ingest/internal/domain"
)

// Normalize expands sample into 4 bytes per pixel. Grayscale bytes are
// replicated into r, g and b; RGB triplets gain an opaque alpha; RGBA and
// unknown kinds are copied as-is.
func Normalize(sample domain.RawImageSample) (domain.CanonicalImage, error) {
	if sample.Width <= 0 || sample.Height <= 0 {
		return domain.CanonicalImage{}, domain.MalformedImageError(
			fmt.Sprintf("invalid dimensions %dx%d", sample.Width, sample.Height), nil)
	}

	stride := sample.Kind.Stride()
	if len(sample.Pix)%stride != 0 {
		return domain.CanonicalImage{}, domain.MalformedImageError(
			fmt.Sprintf("%d bytes is not a multiple of %s stride %d", len(sample.Pix), sample.Kind, stride), nil)
	}

	pixels := len(sample.Pix) / stride
	if pixels != sample.Width*sample.Height {
		return domain.CanonicalImage{}, domain.MalformedImageError(
			fmt.Sprintf("%d pixels do not fill %dx%d", pixels, sample.Width, sample.Height), nil)
	}

	out := make([]byte, pixels*4)
	switch sample.Kind {
	case domain.ColorGrayscale:
		for i, v := range sample.Pix {
			o := i * 4
			out[o], out[o+1], out[o+2], out[o+3] = v, v, v, 255
		}
	case domain.ColorRGB:
		for i := 0; i < pixels; i++ {
			s, o := i*3, i*4
			out[o], out[o+1], out[o+2], out[o+3] = sample.Pix[s], sample.Pix[s+1], sample.Pix[s+2], 255
		}
	default:
		copy(out, sample.Pix)
	}

	return domain.CanonicalImage{RGBA: out, Width: sample.Width, Height: sample.Height}, nil
}

// SampleFromImage converts a decoded image into a RawImageSample, choosing
// the narrowest kind that keeps all information.
func SampleFromImage(img image.Image) domain.RawImageSample {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if g, ok := img.(*image.Gray); ok {
		pix := make([]byte, 0, w*h)
		for y := 0; y < h; y++ {
			start := y * g.Stride
			pix = append(pix, g.Pix[start:start+w]...)
		}
		return domain.RawImageSample{Pix: pix, Width: w, Height: h, Kind: domain.ColorGrayscale}
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) || nrgba.Stride != w*4 {
		nrgba = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	if !nrgba.Opaque() {
		pix := make([]byte, len(nrgba.Pix))
		copy(pix, nrgba.Pix)
		return domain.RawImageSample{Pix: pix, Width: w, Height: h, Kind: domain.ColorRGBA}
	}

	pix := make([]byte, 0, w*h*3)
	for i := 0; i < len(nrgba.Pix); i += 4 {
		pix = append(pix, nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])
	}
	return domain.RawImageSample{Pix: pix, Width: w, Height: h, Kind: domain.ColorRGB}
}

// toNRGBA wraps a canonical buffer without copying.
func toNRGBA(img domain.CanonicalImage) (*image.NRGBA, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.RGBA) != img.Width*img.Height*4 {
		return nil, domain.EncodingError(
			fmt.Sprintf("canonical buffer of %d bytes does not match %dx%d", len(img.RGBA), img.Width, img.Height), nil)
	}
	return &image.NRGBA{
		Pix:    img.RGBA,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}, nil
}
