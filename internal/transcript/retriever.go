// Package transcript resolves video links into transcript text, trying an
// ordered list of locales until one yields captions.
package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/observability"
)

// DefaultLocales is the fallback order used when none is configured.
var DefaultLocales = []string{"en-US", "en-GB", "en-IN", "en"}

// Retriever implements domain.TranscriptRetriever.
type Retriever struct {
	fetcher domain.TranscriptFetcher
	locales []string
	timeout time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// RetrieverOptions configures NewRetriever.
type RetrieverOptions struct {
	Locales []string
	// Timeout bounds each locale attempt; zero leaves only the caller's deadline.
	Timeout time.Duration
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// NewRetriever creates a retriever over fetcher.
func NewRetriever(fetcher domain.TranscriptFetcher, opts RetrieverOptions) *Retriever {
	locales := opts.Locales
	if len(locales) == 0 {
		locales = DefaultLocales
	}
	return &Retriever{
		fetcher: fetcher,
		locales: append([]string(nil), locales...),
		timeout: opts.Timeout,
		metrics: opts.Metrics,
		logger:  observability.Component(opts.Logger, "transcript"),
	}
}

// Locales returns the attempt order.
func (r *Retriever) Locales() []string {
	return append([]string(nil), r.locales...)
}

// FetchTranscript tries each locale in order and returns the first transcript
// found, with segments joined by single spaces. When every locale fails the
// error is domain.ErrTranscriptUnavailable wrapping the last attempt's error.
func (r *Retriever) FetchTranscript(ctx context.Context, link string) (domain.ExtractedText, error) {
	logger := observability.WithContext(ctx, r.logger).With().Str("link", link).Logger()

	var lastErr error
	for i, locale := range r.locales {
		if err := ctx.Err(); err != nil {
			return domain.ExtractedText{}, err
		}

		segments, err := r.attempt(ctx, link, locale)
		r.metrics.ObserveTranscriptAttempt(locale, err)

		if err == nil {
			logger.Debug().
				Str("locale", locale).
				Int("attempt", i+1).
				Int("segments", len(segments)).
				Msg("transcript found")
			return domain.ExtractedText{Text: strings.Join(segments, " ")}, nil
		}

		// Cancellation is not a locale failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ExtractedText{}, ctxErr
		}

		logger.Debug().Err(err).Str("locale", locale).Msg("transcript attempt failed")
		lastErr = fmt.Errorf("locale %s: %w", locale, err)
	}

	return domain.ExtractedText{}, domain.TranscriptUnavailableError(
		fmt.Sprintf("no transcript in any of %d locales", len(r.locales)), lastErr)
}

func (r *Retriever) attempt(ctx context.Context, link, locale string) ([]string, error) {
	if r.timeout <= 0 {
		return r.fetcher.FetchSegments(ctx, link, locale)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.fetcher.FetchSegments(attemptCtx, link, locale)
}
