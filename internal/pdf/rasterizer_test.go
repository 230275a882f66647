package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openForRendering skips when MuPDF cannot be loaded on this machine.
func openForRendering(t *testing.T, r *FitzRasterizer, path string) RasterDocument {
	t.Helper()
	defer func() {
		if p := recover(); p != nil {
			t.Skipf("mupdf unavailable: %v", p)
		}
	}()
	doc, err := r.Open(path)
	if err != nil {
		t.Skipf("mupdf unavailable: %v", err)
	}
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func TestFitzRasterizer_RendersPage(t *testing.T) {
	path := writeFixture(t,
		fixturePage{lines: []string{"Rendered heading"}},
		fixturePage{lines: []string{"Second page"}},
	)

	doc := openForRendering(t, NewFitzRasterizer(72), path)

	img, err := doc.RenderPage(1)
	require.NoError(t, err)
	b := img.Bounds()
	// A4 at 72 dpi is 595 x 842 points.
	assert.InDelta(t, 595, b.Dx(), 2)
	assert.InDelta(t, 842, b.Dy(), 2)

	dark := false
	for y := b.Min.Y; y < b.Max.Y && !dark; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, g, bl, _ := img.At(x, y).RGBA(); r < 0x4000 && g < 0x4000 && bl < 0x4000 {
				dark = true
				break
			}
		}
	}
	assert.True(t, dark, "text drawn on the page")

	_, err = doc.RenderPage(2)
	assert.NoError(t, err)

	_, err = doc.RenderPage(0)
	assert.Error(t, err)
	_, err = doc.RenderPage(3)
	assert.Error(t, err)
}

func TestFitzRasterizer_DefaultDPI(t *testing.T) {
	assert.Equal(t, float64(defaultRenderDPI), NewFitzRasterizer(0).dpi)
	assert.Equal(t, 300.0, NewFitzRasterizer(300).dpi)

	path := writeFixture(t, fixturePage{lines: []string{"x"}})
	doc := openForRendering(t, NewFitzRasterizer(0), path)
	img, err := doc.RenderPage(1)
	require.NoError(t, err)
	// 150 dpi doubles the 72 dpi point size, roughly.
	assert.Greater(t, img.Bounds().Dx(), 1200)
}
