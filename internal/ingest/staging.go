package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/spherical/source-ingest/internal/domain"
)

// Stager owns a private directory that uploads are written to before
// extraction. Everything in it is removed by the extraction that uses it.
type Stager struct {
	dir string
}

// NewStager creates a fresh staging directory under base.
func NewStager(base string) (*Stager, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, domain.IOError("create staging base", err)
	}
	dir, err := os.MkdirTemp(base, "source-ingest-*")
	if err != nil {
		return nil, domain.IOError("create staging directory", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, domain.IOError("resolve staging directory", err)
	}
	return &Stager{dir: abs}, nil
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Owns reports whether path is a file staged by s.
func (s *Stager) Owns(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == s.dir
}

// Stage writes r into the staging directory as <uuid>-<base name of
// originalName> and returns the resulting LocalFile.
func (s *Stager) Stage(r io.Reader, originalName string) (domain.LocalFile, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(originalName)))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return domain.LocalFile{}, domain.IOError("create staged file", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return domain.LocalFile{}, domain.IOError("write staged file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return domain.LocalFile{}, domain.IOError("close staged file", err)
	}
	return domain.NewLocalFile(path, originalName), nil
}

// StageFile copies the file at path into the staging directory.
func (s *Stager) StageFile(path, originalName string) (domain.LocalFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.LocalFile{}, domain.IOError("open source file", err)
	}
	defer f.Close()
	return s.Stage(f, originalName)
}

// Release removes a staged file. Paths outside the staging directory are
// left alone.
func (s *Stager) Release(path string) error {
	if !s.Owns(path) {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close removes the staging directory and anything left in it.
func (s *Stager) Close() error {
	return os.RemoveAll(s.dir)
}
