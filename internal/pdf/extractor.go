// Package pdf extracts text from PDF documents: native page text first, then
// the text a vision model reads out of each embedded image.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/spherical/source-ingest/internal/config"
	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/observability"
	"github.com/spherical/source-ingest/internal/raster"
)

var errNoPixelData = errors.New("image has no pixel data")

// Extractor implements domain.PDFExtractor.
type Extractor struct {
	vision     domain.VisionExtractor
	profile    raster.Profile
	maxImages  int
	loadImages ResolverLoader
	rasterizer Rasterizer
	validator  *Validator
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// ExtractorOptions configures NewExtractor.
type ExtractorOptions struct {
	// MaxImages caps how many embedded images are sent to the vision model
	// per document. Zero disables image extraction.
	MaxImages int
	// Profile bounds embedded images before they are sent.
	Profile raster.Profile
	// LoadImages defaults to LoadPDFCPUImages.
	LoadImages ResolverLoader
	// Rasterizer, when set, renders pages that have no text and no images.
	Rasterizer Rasterizer
	Metrics    *observability.Metrics
	Logger     zerolog.Logger
}

// NewExtractor creates a PDF extractor backed by vision.
func NewExtractor(vision domain.VisionExtractor, opts ExtractorOptions) *Extractor {
	load := opts.LoadImages
	if load == nil {
		load = LoadPDFCPUImages
	}
	logger := observability.Component(opts.Logger, "pdf")
	return &Extractor{
		vision:     vision,
		profile:    opts.Profile,
		maxImages:  opts.MaxImages,
		loadImages: load,
		rasterizer: opts.Rasterizer,
		validator:  NewValidator(logger),
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// NewFromConfig wires an extractor from configuration.
func NewFromConfig(cfg *config.Config, vision domain.VisionExtractor, metrics *observability.Metrics, logger zerolog.Logger) *Extractor {
	opts := ExtractorOptions{
		MaxImages: cfg.PDF.MaxImagesPerDocument,
		Profile: raster.Profile{
			MaxWidth:  cfg.Images.EmbeddedMaxWidth,
			MaxHeight: cfg.Images.EmbeddedMaxHeight,
			Quality:   cfg.Images.Quality,
		},
		Metrics: metrics,
		Logger:  logger,
	}
	if cfg.PDF.ScannedPageRender {
		opts.Rasterizer = NewFitzRasterizer(cfg.PDF.RenderDPI)
	}
	return NewExtractor(vision, opts)
}

// extraction is the state of one ExtractFromPDF call.
type extraction struct {
	path       string
	budget     *ImageBudget
	resolver   ImageResolver
	noImages   bool
	rasterDoc  RasterDocument
	noRaster   bool
	eventCh    chan<- domain.StreamEvent
	requestID  string
	logger     zerolog.Logger
	imagesSeen int
}

// ExtractFromPDF returns the document's text in page order. Each page
// contributes its native text and a newline, followed by one line per
// embedded image read by the vision model. Only a failure to load the
// document is fatal; a bad image is skipped.
func (e *Extractor) ExtractFromPDF(ctx context.Context, path string, eventCh chan<- domain.StreamEvent) (domain.ExtractedText, error) {
	startTime := time.Now()
	requestID := observability.RequestIDFromContext(ctx)
	logger := observability.WithContext(ctx, e.logger).With().Str("path", path).Logger()

	if err := e.validator.ValidatePDFPath(path); err != nil {
		return domain.ExtractedText{}, domain.DocumentLoadError("cannot load PDF", err)
	}

	f, reader, err := openDocument(path)
	if err != nil {
		return domain.ExtractedText{}, domain.DocumentLoadError("cannot parse PDF", err)
	}
	defer f.Close()

	pageCount := reader.NumPage()
	logger.Info().Int("pages", pageCount).Int("image_cap", e.maxImages).Msg("extracting PDF")

	domain.EmitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		RequestID: requestID,
		Total:     pageCount,
		Payload:   fmt.Sprintf("Starting extraction of %d pages", pageCount),
	})

	x := &extraction{
		path:      path,
		budget:    NewImageBudget(e.maxImages),
		eventCh:   eventCh,
		requestID: requestID,
		logger:    logger,
	}
	defer x.close()

	var out strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return domain.ExtractedText{}, err
		}

		domain.EmitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageProcessing,
			RequestID:  requestID,
			PageNumber: pageNum,
			Payload:    fmt.Sprintf("Processing page %d", pageNum),
		})

		fragment, err := e.extractPage(ctx, x, reader, pageNum)
		if err != nil {
			return domain.ExtractedText{}, err
		}
		out.WriteString(fragment)

		domain.EmitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageComplete,
			RequestID:  requestID,
			PageNumber: pageNum,
			Payload:    fmt.Sprintf("Completed page %d", pageNum),
		})
	}

	domain.EmitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventComplete,
		RequestID: requestID,
		Payload: fmt.Sprintf("Extraction complete: %d pages, %d images read in %v",
			pageCount, x.budget.Used(), time.Since(startTime)),
	})

	logger.Info().
		Int("pages", pageCount).
		Int("images_seen", x.imagesSeen).
		Int("images_read", x.budget.Used()).
		Dur("duration", time.Since(startTime)).
		Msg("PDF extraction complete")

	return domain.ExtractedText{Text: out.String()}, nil
}

// extractPage returns the page's native text line followed by its image text.
func (e *Extractor) extractPage(ctx context.Context, x *extraction, reader *pdf.Reader, pageNum int) (string, error) {
	content, err := readPageContent(reader, pageNum)
	if err != nil {
		x.logger.Warn().Err(err).Int("page", pageNum).Msg("page content unreadable")
	}

	var b strings.Builder
	b.WriteString(content.NativeText())
	b.WriteString("\n")

	if x.budget.Exhausted() {
		return b.String(), nil
	}

	if len(content.Images) == 0 {
		if len(content.Fragments) == 0 && err == nil {
			text, err := e.renderPage(ctx, x, pageNum)
			if err != nil {
				return "", err
			}
			b.WriteString(text)
		}
		return b.String(), nil
	}

	x.imagesSeen += len(content.Images)
	resolver := e.resolver(ctx, x)
	if resolver == nil {
		return b.String(), nil
	}

	for _, ref := range content.Images {
		if x.budget.Exhausted() {
			break
		}

		text, consumed, err := e.readImage(ctx, resolver, pageNum, ref)
		if consumed {
			x.budget.Consume()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			e.skipImage(x, pageNum, ref.Name, err)
			continue
		}

		e.metrics.ObserveImage("processed")
		domain.EmitEvent(x.eventCh, domain.StreamEvent{
			Type:       domain.EventImageProcessed,
			RequestID:  x.requestID,
			PageNumber: pageNum,
			Payload:    ref.Name,
		})
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String(), nil
}

// readImage runs one image through decode, normalize, recompress and vision.
// consumed reports whether the vision model was called.
func (e *Extractor) readImage(ctx context.Context, resolver ImageResolver, pageNum int, ref ImageRef) (string, bool, error) {
	resolved, err := resolver.Resolve(ctx, pageNum, ref)
	if err != nil {
		return "", false, err
	}
	if len(resolved.Data) == 0 {
		return "", false, errNoPixelData
	}

	sample, err := raster.DecodeSample(resolved.Data, resolved.FileType)
	if err != nil {
		return "", false, err
	}
	return e.describe(ctx, sample)
}

func (e *Extractor) describe(ctx context.Context, sample domain.RawImageSample) (string, bool, error) {
	if len(sample.Pix) == 0 {
		return "", false, errNoPixelData
	}
	canonical, err := raster.Normalize(sample)
	if err != nil {
		return "", false, err
	}
	encoded, err := e.profile.Recompress(canonical)
	if err != nil {
		return "", false, err
	}

	text, err := e.vision.ExtractTextFromImage(ctx, encoded)
	if err != nil {
		return "", true, err
	}
	return text.Text, true, nil
}

// resolver loads the document's images on first use. A load failure turns
// image extraction off for the rest of the document.
func (e *Extractor) resolver(ctx context.Context, x *extraction) ImageResolver {
	if x.resolver != nil || x.noImages {
		return x.resolver
	}

	r, err := e.loadImages(ctx, x.path)
	if err != nil {
		x.noImages = true
		x.logger.Warn().Err(err).Msg("embedded images unavailable, continuing with text only")
		return nil
	}
	x.resolver = r
	return r
}

// renderPage sends a rasterized page through the vision chain. It only runs
// when a rasterizer is configured.
func (e *Extractor) renderPage(ctx context.Context, x *extraction, pageNum int) (string, error) {
	if e.rasterizer == nil || x.noRaster {
		return "", nil
	}
	if x.rasterDoc == nil {
		doc, err := e.rasterizer.Open(x.path)
		if err != nil {
			x.noRaster = true
			x.logger.Warn().Err(err).Msg("page rendering unavailable")
			return "", nil
		}
		x.rasterDoc = doc
	}

	img, err := x.rasterDoc.RenderPage(pageNum)
	if err != nil {
		e.skipImage(x, pageNum, "page-render", err)
		return "", nil
	}

	text, consumed, err := e.describe(ctx, raster.SampleFromImage(img))
	if consumed {
		x.budget.Consume()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		e.skipImage(x, pageNum, "page-render", err)
		return "", nil
	}

	e.metrics.ObserveImage("rendered")
	return text + "\n", nil
}

func (e *Extractor) skipImage(x *extraction, pageNum int, name string, err error) {
	e.metrics.ObserveImage("skipped")
	x.logger.Warn().Err(err).Int("page", pageNum).Str("image", name).Msg("skipping image")
	domain.EmitEvent(x.eventCh, domain.StreamEvent{
		Type:       domain.EventImageSkipped,
		RequestID:  x.requestID,
		PageNumber: pageNum,
		Payload:    fmt.Sprintf("%s: %v", name, err),
	})
}

func (x *extraction) close() {
	if x.rasterDoc != nil {
		if err := x.rasterDoc.Close(); err != nil {
			x.logger.Debug().Err(err).Msg("close rendered document")
		}
	}
}

// openDocument opens path with the text parser, which panics on some
// malformed files.
func openDocument(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("parse: %v", rec)
		}
	}()
	return pdf.Open(path)
}
