package domain

import "context"

// VisionExtractor turns one encoded image into text using a hosted vision model.
type VisionExtractor interface {
	// ExtractTextFromImage returns an empty ExtractedText when the image holds
	// nothing of interest.
	ExtractTextFromImage(ctx context.Context, img EncodedImage) (ExtractedText, error)
}

// TranscriptFetcher performs a single transcript lookup for one locale.
type TranscriptFetcher interface {
	// FetchSegments returns the ordered caption segments of link in locale.
	FetchSegments(ctx context.Context, link, locale string) ([]string, error)
}

// PDFExtractor converts a PDF on disk into text.
type PDFExtractor interface {
	ExtractFromPDF(ctx context.Context, path string, eventCh chan<- StreamEvent) (ExtractedText, error)
}

// TranscriptRetriever resolves a link into its transcript text.
type TranscriptRetriever interface {
	FetchTranscript(ctx context.Context, link string) (ExtractedText, error)
}

// QuestionGenerator is the downstream consumer of extracted text.
type QuestionGenerator interface {
	Generate(ctx context.Context, caller string, text ExtractedText) error
}
