package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrImageNotFound is returned when a paint operation names an image the
// resolver cannot locate.
var ErrImageNotFound = errors.New("image not found")

// ResolvedImage is the encoded payload of one image XObject.
type ResolvedImage struct {
	Data []byte
	// FileType is the container the stream was exported as: jpg, png, tif.
	FileType string
}

// ImageResolver looks up the image behind a paint operation.
type ImageResolver interface {
	Resolve(ctx context.Context, page int, ref ImageRef) (ResolvedImage, error)
}

// ResolverLoader builds an ImageResolver for the document at path.
type ResolverLoader func(ctx context.Context, path string) (ImageResolver, error)

type pageImage struct {
	name string
	ResolvedImage
}

// PDFCPUResolver holds every image of a document as exported by pdfcpu,
// keyed by page number.
type PDFCPUResolver struct {
	pages map[int][]pageImage
}

// LoadPDFCPUImages exports the images of the document at path.
func LoadPDFCPUImages(ctx context.Context, path string) (ImageResolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTIMAGES
	conf.ValidationMode = model.ValidationRelaxed

	r := &PDFCPUResolver{pages: make(map[int][]pageImage)}
	err = api.ExtractImages(f, nil, func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if img.Reader == nil {
			return nil
		}
		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("read image %s on page %d: %w", img.Name, img.PageNr, err)
		}
		r.pages[img.PageNr] = append(r.pages[img.PageNr], pageImage{
			name:          img.Name,
			ResolvedImage: ResolvedImage{Data: data, FileType: img.FileType},
		})
		return nil
	}, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu image export: %w", err)
	}
	return r, nil
}

// Resolve matches by resource name, falling back to paint order when the
// name is unknown on that page.
func (r *PDFCPUResolver) Resolve(ctx context.Context, page int, ref ImageRef) (ResolvedImage, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedImage{}, err
	}

	images := r.pages[page]
	for _, img := range images {
		if img.name == ref.Name {
			return img.ResolvedImage, nil
		}
	}
	if ref.Index < len(images) {
		return images[ref.Index].ResolvedImage, nil
	}
	return ResolvedImage{}, fmt.Errorf("page %d image %q: %w", page, ref.Name, ErrImageNotFound)
}

// Count returns the number of exported images across all pages.
func (r *PDFCPUResolver) Count() int {
	n := 0
	for _, imgs := range r.pages {
		n += len(imgs)
	}
	return n
}
