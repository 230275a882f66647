// Package ingest routes a source to the extractor that understands it and
// cleans up whatever was staged on disk along the way.
package ingest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/observability"
	"github.com/spherical/source-ingest/internal/raster"
)

const defaultMaxConcurrent = 4

// route is the extractor a file extension is sent to.
type route int

const (
	routeUnsupported route = iota
	routePDF
	routeImage
)

var routes = map[string]route{
	"pdf":  routePDF,
	"png":  routeImage,
	"jpg":  routeImage,
	"jpeg": routeImage,
	"webp": routeImage,
	"avif": routeImage,
}

// SupportedExtensions lists the file extensions Extract accepts.
func SupportedExtensions() []string {
	return []string{"pdf", "png", "jpg", "jpeg", "webp", "avif"}
}

func routeFor(ext string) route {
	return routes[domain.NormalizeExtension(ext)]
}

// Coordinator dispatches sources to the PDF extractor, the vision client or
// the transcript retriever.
type Coordinator struct {
	pdf           domain.PDFExtractor
	vision        domain.VisionExtractor
	transcripts   domain.TranscriptRetriever
	generator     domain.QuestionGenerator
	upload        raster.Profile
	stager        *Stager
	maxConcurrent int
	metrics       *observability.Metrics
	logger        zerolog.Logger
}

// Options configures New.
type Options struct {
	PDF         domain.PDFExtractor
	Vision      domain.VisionExtractor
	Transcripts domain.TranscriptRetriever
	Generator   domain.QuestionGenerator
	// Upload bounds directly uploaded images.
	Upload        raster.Profile
	TempDir       string
	MaxConcurrent int
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
}

// New creates a coordinator with its own staging directory under
// opts.TempDir. Close removes it.
func New(opts Options) (*Coordinator, error) {
	stager, err := NewStager(opts.TempDir)
	if err != nil {
		return nil, err
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Coordinator{
		pdf:           opts.PDF,
		vision:        opts.Vision,
		transcripts:   opts.Transcripts,
		generator:     opts.Generator,
		upload:        opts.Upload,
		stager:        stager,
		maxConcurrent: maxConcurrent,
		metrics:       opts.Metrics,
		logger:        observability.Component(opts.Logger, "ingest"),
	}, nil
}

// Stage writes an upload into the staging directory. The returned LocalFile
// is removed by the Extract call that consumes it.
func (c *Coordinator) Stage(r io.Reader, originalName string) (domain.LocalFile, error) {
	return c.stager.Stage(r, originalName)
}

// StagingDir returns the directory uploads are staged in.
func (c *Coordinator) StagingDir() string {
	return c.stager.Dir()
}

// Close removes the staging directory.
func (c *Coordinator) Close() error {
	return c.stager.Close()
}

// Extract turns src into text.
func (c *Coordinator) Extract(ctx context.Context, src domain.SourceDescriptor) (domain.ExtractedText, error) {
	return c.ExtractWithEvents(ctx, src, nil)
}

// ExtractWithEvents is Extract with progress events sent, without blocking,
// to eventCh.
func (c *Coordinator) ExtractWithEvents(ctx context.Context, src domain.SourceDescriptor, eventCh chan<- domain.StreamEvent) (domain.ExtractedText, error) {
	src = deref(src)
	kind := domain.SourceKind(src)

	requestID := observability.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = observability.ContextWithRequestID(ctx, requestID)
	}
	logger := observability.WithContext(ctx, c.logger).With().Str("source", kind).Logger()

	startTime := time.Now()
	logger.Debug().Msg("extraction started")

	text, err := c.dispatch(ctx, src, eventCh, requestID)
	c.metrics.ObserveExtraction(kind, err)

	if err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(startTime)).Msg("extraction failed")
		domain.EmitEvent(eventCh, domain.StreamEvent{
			Type:      domain.EventError,
			RequestID: requestID,
			Payload:   err.Error(),
		})
		return domain.ExtractedText{}, err
	}

	logger.Info().
		Int("chars", len(text.Text)).
		Dur("duration", time.Since(startTime)).
		Msg("extraction complete")
	return text, nil
}

// Ingest extracts src and hands the text to the question generator.
func (c *Coordinator) Ingest(ctx context.Context, caller string, src domain.SourceDescriptor) error {
	if c.generator == nil {
		return domain.ConfigError("no question generator configured", nil)
	}
	text, err := c.Extract(ctx, src)
	if err != nil {
		return err
	}
	return c.generator.Generate(ctx, caller, text)
}

func (c *Coordinator) dispatch(ctx context.Context, src domain.SourceDescriptor, eventCh chan<- domain.StreamEvent, requestID string) (domain.ExtractedText, error) {
	switch s := src.(type) {
	case domain.LocalFile:
		return c.extractFile(ctx, s, eventCh)

	case domain.RemoteLink:
		if strings.TrimSpace(s.URL) == "" {
			return domain.ExtractedText{}, domain.ValidationError("no link supplied", nil)
		}
		if c.transcripts == nil {
			return domain.ExtractedText{}, domain.ConfigError("no transcript retriever configured", nil)
		}
		c.emitSimple(eventCh, requestID, domain.EventStart, "Fetching transcript")
		text, err := c.transcripts.FetchTranscript(ctx, s.URL)
		if err == nil {
			c.emitSimple(eventCh, requestID, domain.EventComplete, "Transcript fetched")
		}
		return text, err

	case domain.RawText:
		if strings.TrimSpace(s.Content) == "" {
			return domain.ExtractedText{}, domain.ValidationError("no text supplied", nil)
		}
		return domain.ExtractedText{Text: s.Content}, nil

	default:
		return domain.ExtractedText{}, domain.ValidationError(fmt.Sprintf("unknown source %T", src), nil)
	}
}

// extractFile stages file if needed, routes it by declared extension and
// removes the staged copy on every path.
func (c *Coordinator) extractFile(ctx context.Context, file domain.LocalFile, eventCh chan<- domain.StreamEvent) (domain.ExtractedText, error) {
	path := file.Path
	if c.stager.Owns(path) {
		defer c.release(path)
	}

	ext := domain.NormalizeExtension(file.DeclaredExtension)
	r := routeFor(ext)
	if r == routeUnsupported {
		return domain.ExtractedText{}, domain.UnsupportedFormatError(
			fmt.Sprintf("unsupported file type %q (supported: %s)", ext, strings.Join(SupportedExtensions(), ", ")), nil)
	}

	if !c.stager.Owns(path) {
		staged, err := c.stager.StageFile(path, filepath.Base(path))
		if err != nil {
			if r == routePDF {
				return domain.ExtractedText{}, domain.DocumentLoadError("cannot load PDF", err)
			}
			return domain.ExtractedText{}, err
		}
		path = staged.Path
		defer c.release(path)
	}

	switch r {
	case routePDF:
		if c.pdf == nil {
			return domain.ExtractedText{}, domain.ConfigError("no PDF extractor configured", nil)
		}
		return c.pdf.ExtractFromPDF(ctx, path, eventCh)
	default:
		return c.extractImage(ctx, path, ext)
	}
}

// extractImage runs an uploaded image through normalize, recompress and vision.
func (c *Coordinator) extractImage(ctx context.Context, path, ext string) (domain.ExtractedText, error) {
	if c.vision == nil {
		return domain.ExtractedText{}, domain.ConfigError("no vision client configured", nil)
	}

	img, err := raster.DecodeFile(path, ext)
	if err != nil {
		return domain.ExtractedText{}, err
	}
	canonical, err := raster.Normalize(raster.SampleFromImage(img))
	if err != nil {
		return domain.ExtractedText{}, err
	}
	encoded, err := c.upload.Recompress(canonical)
	if err != nil {
		return domain.ExtractedText{}, err
	}

	c.logger.Debug().
		Int("width", encoded.Width).
		Int("height", encoded.Height).
		Int("bytes", len(encoded.Data)).
		Msg("image recompressed")

	return c.vision.ExtractTextFromImage(ctx, encoded)
}

func (c *Coordinator) release(path string) {
	if err := c.stager.Release(path); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("failed to remove staged file")
	}
}

func (c *Coordinator) emitSimple(eventCh chan<- domain.StreamEvent, requestID string, t domain.EventType, payload string) {
	domain.EmitEvent(eventCh, domain.StreamEvent{Type: t, RequestID: requestID, Payload: payload})
}

// deref accepts pointers to the source variants.
func deref(src domain.SourceDescriptor) domain.SourceDescriptor {
	switch s := src.(type) {
	case *domain.LocalFile:
		if s != nil {
			return *s
		}
	case *domain.RemoteLink:
		if s != nil {
			return *s
		}
	case *domain.RawText:
		if s != nil {
			return *s
		}
	default:
		return src
	}
	return nil
}
