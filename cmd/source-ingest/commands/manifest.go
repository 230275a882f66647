package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spherical/source-ingest/pkg/extractor"
)

// manifest lists the sources of a batch run:
//
//	caller: class-7
//	sources:
//	  - file: notes/chapter1.pdf
//	  - file: uploads/3f2a.bin
//	    name: board.jpg
//	  - link: https://youtu.be/dQw4w9WgXcQ
//	  - text: Photosynthesis converts light into chemical energy.
type manifest struct {
	Caller  string           `yaml:"caller"`
	Sources []manifestSource `yaml:"sources"`
}

type manifestSource struct {
	File string `yaml:"file"`
	// Name is the original file name; its extension decides the route.
	Name string `yaml:"name"`
	Link string `yaml:"link"`
	Text string `yaml:"text"`
}

// loadManifest reads a manifest file. Relative file paths are resolved
// against the manifest's directory.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := parseManifest(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	for i := range m.Sources {
		if f := m.Sources[i].File; f != "" && !filepath.IsAbs(f) {
			m.Sources[i].File = filepath.Join(baseDir, f)
		}
	}
	return m, nil
}

func parseManifest(r io.Reader) (*manifest, error) {
	var m manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("manifest is empty")
		}
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Sources) == 0 {
		return nil, fmt.Errorf("manifest lists no sources")
	}
	for i, s := range m.Sources {
		if _, err := s.descriptor(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
	}
	return &m, nil
}

// descriptors returns the sources in manifest order.
func (m *manifest) descriptors() []extractor.SourceDescriptor {
	out := make([]extractor.SourceDescriptor, 0, len(m.Sources))
	for _, s := range m.Sources {
		src, _ := s.descriptor() // checked by parseManifest
		out = append(out, src)
	}
	return out
}

func (s manifestSource) descriptor() (extractor.SourceDescriptor, error) {
	set := 0
	for _, v := range []string{s.File, s.Link, s.Text} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of file, link or text must be set")
	}

	switch {
	case s.File != "":
		name := s.Name
		if name == "" {
			name = filepath.Base(s.File)
		}
		return extractor.NewLocalFile(s.File, name), nil
	case s.Link != "":
		return extractor.RemoteLink{URL: s.Link}, nil
	default:
		return extractor.RawText{Content: s.Text}, nil
	}
}

// label names the source in output headers and error messages.
func (s manifestSource) label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.File != "":
		return filepath.Base(s.File)
	case s.Link != "":
		return s.Link
	default:
		text := []rune(strings.Join(strings.Fields(s.Text), " "))
		if len(text) > 40 {
			return string(text[:37]) + "..."
		}
		return string(text)
	}
}
