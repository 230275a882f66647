package ingest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/source-ingest/internal/domain"
)

func TestExtractBatch_PreservesOrderAndIsolatesFailures(t *testing.T) {
	c := newCoordinator(t, Options{
		Transcripts:   &fakeTranscripts{text: "transcript of", delay: 20 * time.Millisecond},
		MaxConcurrent: 2,
	})

	sources := []domain.SourceDescriptor{
		domain.RemoteLink{URL: "v1"},
		domain.RawText{Content: "pasted"},
		domain.LocalFile{Path: "/nowhere/file.gif", DeclaredExtension: "gif"},
		domain.RemoteLink{URL: "v2"},
	}

	results := c.ExtractBatch(context.Background(), sources, nil)
	require.Len(t, results, 4)

	assert.Equal(t, "transcript of v1", results[0].Text.Text)
	assert.Equal(t, "pasted", results[1].Text.Text)
	assert.ErrorIs(t, results[2].Err, domain.ErrUnsupportedFormat)
	assert.Equal(t, "transcript of v2", results[3].Text.Text)
	for i, r := range results {
		assert.Equal(t, sources[i], r.Source)
	}
}

func TestExtractBatch_Cancelled(t *testing.T) {
	c := newCoordinator(t, Options{Transcripts: &fakeTranscripts{delay: time.Second}, MaxConcurrent: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results := c.ExtractBatch(ctx, []domain.SourceDescriptor{
		domain.RemoteLink{URL: "a"},
		domain.RemoteLink{URL: "b"},
	}, nil)

	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	}
}

func TestIngestBatch_WritesEachSuccess(t *testing.T) {
	var out bytes.Buffer
	c := newCoordinator(t, Options{Generator: NewWriterGenerator(&out, true)})

	results := c.IngestBatch(context.Background(), "class-7", []domain.SourceDescriptor{
		domain.RawText{Content: "first"},
		domain.RawText{},
	})

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, "## class-7\n\nfirst\n", out.String())
}

func TestWriterGenerator(t *testing.T) {
	var out bytes.Buffer
	g := NewWriterGenerator(&out, false)

	require.NoError(t, g.Generate(context.Background(), "c", domain.ExtractedText{Text: "one"}))
	require.NoError(t, g.Generate(context.Background(), "c", domain.ExtractedText{Text: "two"}))
	assert.Equal(t, "one\ntwo\n", out.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.Generate(ctx, "c", domain.ExtractedText{Text: "x"}), context.Canceled)
}
