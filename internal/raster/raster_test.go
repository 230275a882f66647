package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/source-ingest/internal/domain"
)

func TestNormalize_Grayscale(t *testing.T) {
	sample := domain.RawImageSample{Pix: []byte{0, 127, 255, 9}, Width: 2, Height: 2, Kind: domain.ColorGrayscale}

	got, err := Normalize(sample)
	require.NoError(t, err)
	require.Len(t, got.RGBA, 16)

	for i, v := range sample.Pix {
		assert.Equal(t, []byte{v, v, v, 255}, got.RGBA[i*4:i*4+4], "pixel %d", i)
	}
}

func TestNormalize_RGB(t *testing.T) {
	sample := domain.RawImageSample{Pix: []byte{1, 2, 3, 4, 5, 6}, Width: 2, Height: 1, Kind: domain.ColorRGB}

	got, err := Normalize(sample)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 255, 4, 5, 6, 255}, got.RGBA)
	assert.Equal(t, 2, got.Width)
	assert.Equal(t, 1, got.Height)
}

func TestNormalize_RGBAAndUnknownCopied(t *testing.T) {
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for _, kind := range []domain.ColorKind{domain.ColorRGBA, domain.ColorKind(42)} {
		got, err := Normalize(domain.RawImageSample{Pix: pix, Width: 1, Height: 2, Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, pix, got.RGBA)
	}
}

func TestNormalize_DoesNotAliasInput(t *testing.T) {
	pix := []byte{1, 2, 3, 4}
	got, err := Normalize(domain.RawImageSample{Pix: pix, Width: 1, Height: 1, Kind: domain.ColorRGBA})
	require.NoError(t, err)
	got.RGBA[0] = 99
	assert.Equal(t, byte(1), pix[0])
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		sample domain.RawImageSample
	}{
		{"rgb length not multiple of 3", domain.RawImageSample{Pix: make([]byte, 7), Width: 2, Height: 1, Kind: domain.ColorRGB}},
		{"rgba length not multiple of 4", domain.RawImageSample{Pix: make([]byte, 6), Width: 1, Height: 1, Kind: domain.ColorRGBA}},
		{"pixel count mismatch", domain.RawImageSample{Pix: make([]byte, 3), Width: 2, Height: 2, Kind: domain.ColorGrayscale}},
		{"zero width", domain.RawImageSample{Pix: nil, Width: 0, Height: 2, Kind: domain.ColorGrayscale}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.sample)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedImageData)
		})
	}
}

func TestFitInside(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"already fits", 300, 200, 720, 720, 300, 200},
		{"exact bound", 720, 720, 720, 720, 720, 720},
		{"wide", 2000, 1000, 1024, 1024, 1024, 512},
		{"tall", 1000, 3000, 720, 720, 240, 720},
		{"extreme aspect keeps 1px", 10000, 2, 720, 720, 720, 1},
		{"no bounds", 5000, 5000, 0, 0, 5000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitInside(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func solidCanonical(w, h int, c color.NRGBA) domain.CanonicalImage {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	return domain.CanonicalImage{RGBA: pix, Width: w, Height: h}
}

func TestRecompress_Downscales(t *testing.T) {
	img := solidCanonical(2000, 1000, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	enc, err := Recompress(img, 1024, 1024, 80)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", enc.MIMEType)
	assert.Equal(t, 1024, enc.Width)
	assert.Equal(t, 512, enc.Height)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(enc.Data))
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
}

func TestRecompress_NeverUpscales(t *testing.T) {
	img := solidCanonical(40, 30, color.NRGBA{G: 255, A: 255})

	enc, err := Profile{MaxWidth: 720, MaxHeight: 720, Quality: 80}.Recompress(img)
	require.NoError(t, err)
	assert.Equal(t, 40, enc.Width)
	assert.Equal(t, 30, enc.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(enc.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), decoded.Bounds())
}

func TestRecompress_BufferMismatch(t *testing.T) {
	_, err := Recompress(domain.CanonicalImage{RGBA: make([]byte, 10), Width: 2, Height: 2}, 100, 100, 80)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestSampleFromImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.Pix = []byte{10, 20}
	s := SampleFromImage(gray)
	assert.Equal(t, domain.ColorGrayscale, s.Kind)
	assert.Equal(t, []byte{10, 20}, s.Pix)

	opaque := image.NewRGBA(image.Rect(0, 0, 1, 1))
	opaque.Set(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	s = SampleFromImage(opaque)
	assert.Equal(t, domain.ColorRGB, s.Kind)
	assert.Equal(t, []byte{1, 2, 3}, s.Pix)

	translucent := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	translucent.SetNRGBA(0, 0, color.NRGBA{R: 9, G: 8, B: 7, A: 100})
	s = SampleFromImage(translucent)
	assert.Equal(t, domain.ColorRGBA, s.Kind)
	assert.Equal(t, []byte{9, 8, 7, 100}, s.Pix)
}

func TestSampleFromImage_SubImageOffset(t *testing.T) {
	base := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range base.Pix {
		base.Pix[i] = byte(i)
	}
	sub := base.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)

	s := SampleFromImage(sub)
	assert.Equal(t, 2, s.Width)
	assert.Equal(t, []byte{5, 6, 9, 10}, s.Pix)
}

func TestDecodeFile_PNGRoundTripsThroughPipeline(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	path := filepath.Join(t.TempDir(), "white.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	img, err := DecodeFile(path, "png")
	require.NoError(t, err)

	canon, err := Normalize(SampleFromImage(img))
	require.NoError(t, err)
	assert.Len(t, canon.RGBA, 3*2*4)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := DecodeBytes([]byte("not an image"), "png")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEncoding)

	_, err = DecodeSample([]byte("nope"), "jpeg")
	assert.ErrorIs(t, err, domain.ErrEncoding)
}
