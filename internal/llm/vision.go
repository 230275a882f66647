package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/spherical/source-ingest/internal/cache"
	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/observability"
	"github.com/spherical/source-ingest/internal/retry"
)

// Provider performs a single model call for one image.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, prompt string, img domain.EncodedImage) (string, error)
}

// Vision implements domain.VisionExtractor on top of a Provider, adding
// retry, rate limiting, response validation and an optional result cache.
type Vision struct {
	provider Provider
	retry    retry.Config
	limiter  *rate.Limiter
	cache    cache.Client
	cacheTTL time.Duration
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// VisionOptions configures NewVision. Zero values disable the optional parts.
type VisionOptions struct {
	Retry             retry.Config
	RequestsPerSecond float64
	Cache             cache.Client
	CacheTTL          time.Duration
	Metrics           *observability.Metrics
	Logger            zerolog.Logger
}

// NewVision wraps provider.
func NewVision(provider Provider, opts VisionOptions) *Vision {
	v := &Vision{
		provider: provider,
		retry:    opts.Retry,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		metrics:  opts.Metrics,
		logger:   observability.Component(opts.Logger, "vision").With().Str("provider", provider.Name()).Logger(),
	}
	if opts.RequestsPerSecond > 0 {
		v.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return v
}

// ExtractTextFromImage sends img to the model and returns the validated text.
// Transient failures are retried; a non-conforming payload is returned as
// domain.ErrInvalidModelResponse without retry.
func (v *Vision) ExtractTextFromImage(ctx context.Context, img domain.EncodedImage) (domain.ExtractedText, error) {
	if len(img.Data) == 0 {
		return domain.ExtractedText{}, domain.ValidationError("image has no data", nil)
	}

	logger := observability.WithContext(ctx, v.logger)
	key := cache.Key("vision", []byte(v.provider.Name()), []byte(v.provider.Model()), img.Data)

	if v.cache != nil {
		cached, err := v.cache.Get(ctx, key)
		switch {
		case err == nil:
			if text, perr := ParseVisionResponse(string(cached)); perr == nil {
				logger.Debug().Str("key", key).Msg("vision cache hit")
				return text, nil
			}
			// entry no longer validates; ask the model again
			if err := v.cache.Delete(ctx, key); err != nil {
				logger.Warn().Err(err).Msg("vision cache evict failed")
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn().Err(err).Msg("vision cache read failed")
		}
	}

	started := time.Now()
	var raw string
	err := retry.Do(ctx, v.retry, logger, func(ctx context.Context) error {
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		out, err := v.provider.Generate(ctx, visionPrompt, img)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})

	var text domain.ExtractedText
	if err == nil {
		text, err = ParseVisionResponse(raw)
	}
	v.metrics.ObserveVision(v.provider.Name(), started, err)

	if err != nil {
		logger.Warn().Err(err).Int("bytes", len(img.Data)).Msg("vision extraction failed")
		return domain.ExtractedText{}, err
	}

	logger.Debug().
		Int("chars", len(text.Text)).
		Dur("elapsed", time.Since(started)).
		Msg("vision extraction complete")

	if v.cache != nil {
		if err := v.cache.Set(ctx, key, []byte(raw), v.cacheTTL); err != nil {
			logger.Warn().Err(err).Msg("vision cache write failed")
		}
	}

	return text, nil
}
