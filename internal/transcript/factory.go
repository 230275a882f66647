package transcript

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/spherical/source-ingest/internal/config"
	"github.com/spherical/source-ingest/internal/observability"
	"github.com/spherical/source-ingest/internal/retry"
)

// NewFromConfig wires a YouTube-backed retriever from configuration.
func NewFromConfig(cfg config.TranscriptConfig, httpClient *http.Client, metrics *observability.Metrics, logger zerolog.Logger) *Retriever {
	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.MaxRetries

	fetcher := NewYouTubeFetcher(YouTubeOptions{
		BaseURL:    cfg.BaseURL,
		HTTPClient: httpClient,
		Retry:      rc,
		Logger:     logger,
	})
	return NewRetriever(fetcher, RetrieverOptions{
		Locales: cfg.Locales,
		Timeout: cfg.Timeout,
		Metrics: metrics,
		Logger:  logger,
	})
}
