package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf, ServiceName: "svc"})

	pdfLog := Component(logger, "pdf")
	pdfLog.Info().Int("page", 2).Msg("page done")
	logger.Debug().Msg("filtered")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, "pdf", entry["component"])
	assert.Equal(t, "page done", entry["message"])
	assert.EqualValues(t, 2, entry["page"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.TraceLevel, parseLevel("trace"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}

func TestWithContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "json", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	reqLog := WithContext(ctx, logger)
	reqLog.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveExtraction("pdf", nil)
	m.ObserveExtraction("pdf", errors.New("x"))
	m.ObserveImage("skipped")
	m.ObserveVision("openrouter", time.Now(), nil)
	m.ObserveTranscriptAttempt("en-US", errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Extractions.WithLabelValues("pdf", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Extractions.WithLabelValues("pdf", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Images.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VisionCalls.WithLabelValues("openrouter", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptAttempts.WithLabelValues("en-US", "error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveExtraction("text", nil)
		m.ObserveImage("processed")
		m.ObserveVision("gemini", time.Now(), nil)
		m.ObserveTranscriptAttempt("en", nil)
	})
	assert.NoError(t, m.WriteToTextfile("/nonexistent/metrics.prom"))
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveExtraction("link", nil)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `source_ingest_extractions_total{kind="link",outcome="ok"} 1`)
}
