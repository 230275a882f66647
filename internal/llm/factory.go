package llm

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/spherical/source-ingest/internal/cache"
	"github.com/spherical/source-ingest/internal/config"
	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/observability"
	"github.com/spherical/source-ingest/internal/retry"
)

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError(cfg.Provider+" API key not set", nil)
	}

	switch cfg.Provider {
	case "gemini":
		gemini, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			HTTPClient:  httpClient,
		})
		if err != nil {
			return nil, err
		}
		return gemini, nil
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openAIBaseURL
		}
		return NewClient(cfg.APIKey, model,
			WithProvider("openai"),
			WithBaseURL(baseURL),
			WithHTTPClient(httpClient),
			WithTemperature(cfg.Temperature),
		), nil
	case "openrouter", "":
		return NewClient(cfg.APIKey, cfg.Model,
			WithBaseURL(cfg.BaseURL),
			WithHTTPClient(httpClient),
			WithTemperature(cfg.Temperature),
		), nil
	default:
		return nil, domain.ConfigError("unknown llm provider: "+cfg.Provider, nil)
	}
}

// RetryConfig maps LLM settings onto a retry policy.
func RetryConfig(cfg config.LLMConfig) retry.Config {
	return retry.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		AttemptTimeout: cfg.Timeout,
	}
}

// NewVisionFromConfig wires a provider, retry policy, rate limit and cache.
func NewVisionFromConfig(ctx context.Context, cfg *config.Config, cacheClient cache.Client, metrics *observability.Metrics, logger zerolog.Logger, httpClient *http.Client) (*Vision, error) {
	provider, err := NewProvider(ctx, cfg.LLM, httpClient)
	if err != nil {
		return nil, err
	}

	return NewVision(provider, VisionOptions{
		Retry:             RetryConfig(cfg.LLM),
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Cache:             cacheClient,
		CacheTTL:          cfg.Cache.TTL,
		Metrics:           metrics,
		Logger:            logger,
	}), nil
}
