package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"

	"github.com/spherical/source-ingest/internal/domain"
)

type fixturePage struct {
	lines  []string
	images [][]byte
}

// writeFixture renders pages with fpdf: each line as its own text cell,
// each image as its own XObject.
func writeFixture(t *testing.T, pages ...fixturePage) string {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	for i, p := range pages {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		for _, line := range p.lines {
			doc.Cell(0, 10, line)
			doc.Ln(10)
		}
		for j, img := range p.images {
			name := fmt.Sprintf("img-%d-%d", i, j)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
			doc.ImageOptions(name, 10, 60+float64(j)*40, 30, 30, false, opts, 0, "")
		}
	}
	require.NoError(t, doc.Error())

	path := filepath.Join(t.TempDir(), "fixture.pdf")
	require.NoError(t, doc.OutputFileAndClose(path))
	return path
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeVision answers each call with the next scripted text.
type fakeVision struct {
	mu      sync.Mutex
	answers []string
	errs    map[int]error
	seen    []domain.EncodedImage
}

func (v *fakeVision) ExtractTextFromImage(ctx context.Context, img domain.EncodedImage) (domain.ExtractedText, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := len(v.seen)
	v.seen = append(v.seen, img)
	if err := v.errs[n]; err != nil {
		return domain.ExtractedText{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ExtractedText{}, err
	}
	if n < len(v.answers) {
		return domain.ExtractedText{Text: v.answers[n]}, nil
	}
	return domain.ExtractedText{Text: fmt.Sprintf("image %d", n+1)}, nil
}

func (v *fakeVision) calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// staticResolver serves images by paint order, ignoring names.
type staticResolver struct {
	pages map[int][]ResolvedImage
}

func (r staticResolver) Resolve(ctx context.Context, page int, ref ImageRef) (ResolvedImage, error) {
	imgs := r.pages[page]
	if ref.Index >= len(imgs) {
		return ResolvedImage{}, ErrImageNotFound
	}
	return imgs[ref.Index], nil
}

func loaderFor(r ImageResolver) ResolverLoader {
	return func(context.Context, string) (ImageResolver, error) { return r, nil }
}

// writeRawPDF writes a one-page PDF whose content stream is exactly stream,
// using a WinAnsi Helvetica as /F1.
func writeRawPDF(t *testing.T, stream string) string {
	t.Helper()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream)+1, stream),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "raw.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}
