package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spherical/source-ingest/internal/domain"
)

const largeFileSize = 100 * 1024 * 1024 // 100MB

var pdfMagic = []byte("%PDF-")

// Validator provides input validation for PDF files
type Validator struct {
	logger zerolog.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidatePDFPath checks that path is a readable regular file starting with
// a PDF header. The file extension is not consulted; callers route by the
// declared extension.
func (v *Validator) ValidatePDFPath(path string) error {
	// Check if path is empty
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	// Check if file exists
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	// Check if it's a directory
	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	// Very large files are processed, just slowly
	if info.Size() > largeFileSize {
		v.logger.Warn().
			Str("path", path).
			Int64("size_mb", info.Size()/(1024*1024)).
			Msg("PDF file is very large, processing may take a while")
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.ValidationError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	defer file.Close()

	// Some writers put junk before the header; the format allows up to 1KB.
	head := make([]byte, 1024)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return domain.ValidationError(fmt.Sprintf("cannot read file: %s", path), err)
	}
	if !bytes.Contains(head[:n], pdfMagic) {
		return domain.ValidationError(fmt.Sprintf("file has no PDF header: %s", path), nil)
	}

	return nil
}
