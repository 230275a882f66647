// Package extractor is the public entry point: it wires configuration, the
// vision client, the PDF extractor and the transcript retriever into one
// client.
package extractor

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/spherical/source-ingest/internal/cache"
	"github.com/spherical/source-ingest/internal/config"
	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/ingest"
	"github.com/spherical/source-ingest/internal/llm"
	"github.com/spherical/source-ingest/internal/observability"
	"github.com/spherical/source-ingest/internal/pdf"
	"github.com/spherical/source-ingest/internal/raster"
	"github.com/spherical/source-ingest/internal/transcript"
)

// Re-export source and event types for public API
type (
	Config            = config.Config
	SourceDescriptor  = domain.SourceDescriptor
	LocalFile         = domain.LocalFile
	RemoteLink        = domain.RemoteLink
	RawText           = domain.RawText
	ExtractedText     = domain.ExtractedText
	StreamEvent       = domain.StreamEvent
	EventType         = domain.EventType
	Result            = ingest.Result
	QuestionGenerator = domain.QuestionGenerator
)

// Event type constants
const (
	EventStart          = domain.EventStart
	EventPageProcessing = domain.EventPageProcessing
	EventImageProcessed = domain.EventImageProcessed
	EventImageSkipped   = domain.EventImageSkipped
	EventPageComplete   = domain.EventPageComplete
	EventError          = domain.EventError
	EventComplete       = domain.EventComplete
)

// ConfigEnv names the variable NewClient reads the config file path from.
const ConfigEnv = "SOURCE_INGEST_CONFIG"

// NewLocalFile describes an uploaded file by its path and the client's
// original file name.
func NewLocalFile(path, originalName string) LocalFile {
	return domain.NewLocalFile(path, originalName)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// LoadConfig reads a YAML config file (optional) and applies environment
// overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Client is the main entry point for the source ingestion library
type Client struct {
	coordinator *ingest.Coordinator
	cache       cache.Client
	metrics     *observability.Metrics
	metricsFile string
	logger      zerolog.Logger
}

// Option customizes NewClientWithConfig.
type Option func(*options)

type options struct {
	logger     *zerolog.Logger
	httpClient *http.Client
	generator  domain.QuestionGenerator
}

// WithLogger replaces the logger built from configuration.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithHTTPClient sets the HTTP client used for model and transcript calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithQuestionGenerator sets the consumer Ingest hands extracted text to.
func WithQuestionGenerator(g QuestionGenerator) Option {
	return func(o *options) { o.generator = g }
}

// NewClient creates a client from .env, the file named by SOURCE_INGEST_CONFIG
// and the environment.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	// Load environment variables
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg, err := config.Load(os.Getenv(ConfigEnv))
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(ctx, cfg, opts...)
}

// NewClientWithConfig creates a client with custom configuration
func NewClientWithConfig(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("config is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	if o.logger != nil {
		logger = *o.logger
	}

	metrics := observability.NewMetrics()

	resultCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, domain.ConfigError("initialize cache", err)
	}

	vision, err := llm.NewVisionFromConfig(ctx, cfg, resultCache, metrics, logger, o.httpClient)
	if err != nil {
		closeCache(resultCache)
		return nil, err
	}

	coordinator, err := ingest.New(ingest.Options{
		PDF:         pdf.NewFromConfig(cfg, vision, metrics, logger),
		Vision:      vision,
		Transcripts: transcript.NewFromConfig(cfg.Transcript, o.httpClient, metrics, logger),
		Generator:   o.generator,
		Upload: raster.Profile{
			MaxWidth:  cfg.Images.UploadMaxWidth,
			MaxHeight: cfg.Images.UploadMaxHeight,
			Quality:   cfg.Images.Quality,
		},
		TempDir:       cfg.TempDir(),
		MaxConcurrent: cfg.Ingest.MaxConcurrent,
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		closeCache(resultCache)
		return nil, err
	}

	return &Client{
		coordinator: coordinator,
		cache:       resultCache,
		metrics:     metrics,
		metricsFile: cfg.Observability.MetricsFile,
		logger:      logger,
	}, nil
}

// Extract turns src into text.
func (c *Client) Extract(ctx context.Context, src SourceDescriptor) (ExtractedText, error) {
	return c.coordinator.Extract(ctx, src)
}

// Ingest extracts src and hands the text to the configured question generator.
func (c *Client) Ingest(ctx context.Context, caller string, src SourceDescriptor) error {
	return c.coordinator.Ingest(ctx, caller, src)
}

// ExtractBatch extracts sources concurrently, returning results in input order.
func (c *Client) ExtractBatch(ctx context.Context, sources []SourceDescriptor, eventCh chan<- StreamEvent) []Result {
	return c.coordinator.ExtractBatch(ctx, sources, eventCh)
}

// Stage copies an upload stream into the client's staging directory. The
// returned file is deleted once extracted.
func (c *Client) Stage(r io.Reader, originalName string) (LocalFile, error) {
	return c.coordinator.Stage(r, originalName)
}

// Process extracts src in the background.
// Returns a channel that streams events as extraction progresses. Exactly one
// terminal event is sent, last: EventComplete carrying the ExtractedText, or
// EventError carrying the error text. Terminal events raised by the
// individual extractors are not forwarded.
func (c *Client) Process(ctx context.Context, src SourceDescriptor) <-chan StreamEvent {
	eventCh := make(chan StreamEvent, 100)

	go func() {
		defer close(eventCh)

		progress := make(chan StreamEvent, cap(eventCh))
		forwarded := make(chan struct{})
		go func() {
			defer close(forwarded)
			for ev := range progress {
				if ev.Type == EventComplete || ev.Type == EventError {
					continue
				}
				domain.EmitEvent(eventCh, ev)
			}
		}()

		text, err := c.coordinator.ExtractWithEvents(ctx, src, progress)
		close(progress)
		<-forwarded

		final := StreamEvent{Type: EventComplete, Payload: text}
		if err != nil {
			final = StreamEvent{Type: EventError, Payload: err.Error()}
		}

		// Progress events may be dropped when the reader lags; the final one is not.
		if domain.EmitEvent(eventCh, final) {
			return
		}
		final.Timestamp = time.Now()
		select {
		case eventCh <- final:
		case <-ctx.Done():
		}
	}()

	return eventCh
}

// WriteMetrics writes the metrics registry to path in Prometheus text format.
// An empty path falls back to observability.metrics_file.
func (c *Client) WriteMetrics(path string) error {
	if path == "" {
		path = c.metricsFile
	}
	return c.metrics.WriteToTextfile(path)
}

// Logger returns the client's logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// Close cleans up resources
func (c *Client) Close() error {
	err := c.coordinator.Close()
	if c.cache != nil {
		if cerr := c.cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func closeCache(c cache.Client) {
	if c != nil {
		_ = c.Close()
	}
}
