package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/source-ingest/pkg/extractor"
)

func TestParseManifest(t *testing.T) {
	m, err := parseManifest(strings.NewReader(`
caller: class-7
sources:
  - file: notes/chapter1.pdf
  - file: uploads/3f2a.bin
    name: board.JPG
  - link: https://youtu.be/dQw4w9WgXcQ
  - text: Photosynthesis converts light into chemical energy.
`))
	require.NoError(t, err)
	assert.Equal(t, "class-7", m.Caller)

	sources := m.descriptors()
	require.Len(t, sources, 4)
	assert.Equal(t, extractor.LocalFile{Path: "notes/chapter1.pdf", DeclaredExtension: "pdf"}, sources[0])
	assert.Equal(t, extractor.LocalFile{Path: "uploads/3f2a.bin", DeclaredExtension: "jpg"}, sources[1])
	assert.Equal(t, extractor.RemoteLink{URL: "https://youtu.be/dQw4w9WgXcQ"}, sources[2])
	assert.Equal(t, extractor.RawText{Content: "Photosynthesis converts light into chemical energy."}, sources[3])
}

func TestParseManifestRejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "manifest is empty"},
		{"no sources", "caller: x\n", "no sources"},
		{"two kinds", "sources:\n  - file: a.pdf\n    link: https://youtu.be/dQw4w9WgXcQ\n", "source 1"},
		{"nothing set", "sources:\n  - name: a.pdf\n", "exactly one"},
		{"unknown field", "sources:\n  - url: https://example.com\n", "parse manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseManifest(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifestResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	abs := filepath.Join(dir, "elsewhere", "b.png")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - file: a.pdf\n  - file: "+abs+"\n"), 0o644))

	m, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.pdf"), m.Sources[0].File)
	assert.Equal(t, abs, m.Sources[1].File)
}

func TestManifestSourceLabel(t *testing.T) {
	assert.Equal(t, "board.jpg", manifestSource{File: "/x/3f2a.bin", Name: "board.jpg"}.label())
	assert.Equal(t, "a.pdf", manifestSource{File: "/x/a.pdf"}.label())
	assert.Equal(t, "https://youtu.be/x", manifestSource{Link: "https://youtu.be/x"}.label())
	assert.Equal(t, "short text", manifestSource{Text: "short \n text"}.label())

	long := manifestSource{Text: strings.Repeat("é", 60)}.label()
	assert.Equal(t, strings.Repeat("é", 37)+"...", long)
}

func TestReadText(t *testing.T) {
	got, err := readText(strings.NewReader("ignored"), []string{"cells", "divide"})
	require.NoError(t, err)
	assert.Equal(t, "cells divide", got)

	got, err = readText(strings.NewReader("from stdin"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	got, err = readText(strings.NewReader("no args"), nil)
	require.NoError(t, err)
	assert.Equal(t, "no args", got)
}

func TestWatch(t *testing.T) {
	t.Run("returns final text", func(t *testing.T) {
		events := make(chan extractor.StreamEvent, 8)
		events <- extractor.StreamEvent{Type: extractor.EventStart, Total: 2}
		events <- extractor.StreamEvent{Type: extractor.EventPageComplete, PageNumber: 1}
		events <- extractor.StreamEvent{Type: extractor.EventImageSkipped, PageNumber: 2, Payload: "Im1: bad"}
		events <- extractor.StreamEvent{Type: extractor.EventPageComplete, PageNumber: 2}
		events <- extractor.StreamEvent{Type: extractor.EventComplete, Payload: "Extraction complete"}
		events <- extractor.StreamEvent{Type: extractor.EventComplete, Payload: extractor.ExtractedText{Text: "p1\np2\n"}}
		close(events)

		text, err := watch(context.Background(), events)
		require.NoError(t, err)
		assert.Equal(t, "p1\np2\n", text.Text)
	})

	t.Run("returns error event", func(t *testing.T) {
		events := make(chan extractor.StreamEvent, 2)
		events <- extractor.StreamEvent{Type: extractor.EventStart, Payload: "Fetching transcript"}
		events <- extractor.StreamEvent{Type: extractor.EventError, Payload: "transcript unavailable"}
		close(events)

		_, err := watch(context.Background(), events)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transcript unavailable")
	})

	t.Run("cancelled without final event", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		events := make(chan extractor.StreamEvent)
		close(events)

		_, err := watch(ctx, events)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// execute runs the root command with args and resets flag state afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, verbose, noColor, outputPath, metricsFile, caller = "", false, false, "", "", ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func cliEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SOURCE_INGEST_CONFIG", "")
	t.Setenv("SOURCE_INGEST_TEMP_DIR", t.TempDir())
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "source-ingest version "+Version+"\n", out)
}

func TestTextCommandWritesOutput(t *testing.T) {
	cliEnv(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	metrics := filepath.Join(dir, "metrics.prom")

	_, err := execute(t, "text", "--no-color", "-o", out, "--metrics-file", metrics, "--caller", "class-7",
		"plants", "make", "sugar")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "## class-7\n\nplants make sugar\n", string(data))

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "source_ingest_extractions_total")
}

func TestBatchCommandIsolatesFailures(t *testing.T) {
	cliEnv(t)
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slides.key"), []byte("keynote"), 0o644))
	require.NoError(t, os.WriteFile(manifestPath, []byte(`
caller: class-7
sources:
  - text: first
  - file: slides.key
  - text: second
`), 0o644))
	out := filepath.Join(dir, "out.txt")

	_, err := execute(t, "batch", "--no-color", "-o", out, manifestPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 sources failed")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "## class-7: first\n\nfirst\n## class-7: second\n\nsecond\n", string(data))

	_, err = os.Stat(filepath.Join(dir, "slides.key"))
	assert.NoError(t, err, "caller's file must not be removed")
}

func TestFileCommandChecksKind(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "board.png")
	require.NoError(t, os.WriteFile(png, []byte("x"), 0o644))

	_, err := execute(t, "pdf", png)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF")

	_, err = execute(t, "image", filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access file")
}
