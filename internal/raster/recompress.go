package raster

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"

	"github.com/spherical/source-ingest/internal/domain"
)

// Profile bounds the output of Recompress.
type Profile struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Recompress applies Recompress with the profile's bounds.
func (p Profile) Recompress(img domain.CanonicalImage) (domain.EncodedImage, error) {
	return Recompress(img, p.MaxWidth, p.MaxHeight, p.Quality)
}

// Recompress fits img inside maxWidth x maxHeight preserving aspect ratio and
// encodes it as JPEG. Images that already fit are never upscaled.
func Recompress(img domain.CanonicalImage, maxWidth, maxHeight, quality int) (domain.EncodedImage, error) {
	src, err := toNRGBA(img)
	if err != nil {
		return domain.EncodedImage{}, err
	}

	w, h := FitInside(img.Width, img.Height, maxWidth, maxHeight)

	var out image.Image = src
	if w != img.Width || h != img.Height {
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return domain.EncodedImage{}, domain.EncodingError("jpeg encode failed", err)
	}

	return domain.EncodedImage{
		Data:     buf.Bytes(),
		MIMEType: "image/jpeg",
		Width:    w,
		Height:   h,
	}, nil
}

// FitInside returns the largest dimensions no bigger than the bounds that
// keep the aspect ratio of width x height. Non-positive bounds are ignored.
func FitInside(width, height, maxWidth, maxHeight int) (int, int) {
	scale := 1.0
	if maxWidth > 0 && width > maxWidth {
		scale = math.Min(scale, float64(maxWidth)/float64(width))
	}
	if maxHeight > 0 && height > maxHeight {
		scale = math.Min(scale, float64(maxHeight)/float64(height))
	}
	if scale >= 1 {
		return width, height
	}

	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	if maxWidth > 0 && w > maxWidth {
		w = maxWidth
	}
	if maxHeight > 0 && h > maxHeight {
		h = maxHeight
	}
	return max(w, 1), max(h, 1)
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return jpeg.DefaultQuality
	case q > 100:
		return 100
	default:
		return q
	}
}
