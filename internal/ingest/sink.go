package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spherical/source-ingest/internal/domain"
)

// WriterGenerator stands in for the question generation service: it writes
// each caller's extracted text to w.
type WriterGenerator struct {
	mu     sync.Mutex
	w      io.Writer
	header bool
}

// NewWriterGenerator creates a generator writing to w. With header set every
// text is preceded by a line naming the caller.
func NewWriterGenerator(w io.Writer, header bool) *WriterGenerator {
	return &WriterGenerator{w: w, header: header}
}

// Generate writes text for caller.
func (g *WriterGenerator) Generate(ctx context.Context, caller string, text domain.ExtractedText) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.header {
		if _, err := fmt.Fprintf(g.w, "## %s\n\n", caller); err != nil {
			return domain.IOError("write output", err)
		}
	}
	if _, err := io.WriteString(g.w, text.Text); err != nil {
		return domain.IOError("write output", err)
	}
	if _, err := io.WriteString(g.w, "\n"); err != nil {
		return domain.IOError("write output", err)
	}
	return nil
}
