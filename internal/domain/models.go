package domain

import (
	"encoding/base64"
	"path/filepath"
	"strings"
	"time"
)

// SourceDescriptor is one of LocalFile, RemoteLink or RawText.
type SourceDescriptor interface {
	sourceKind() string
}

// LocalFile references an uploaded file staged on disk. DeclaredExtension is the
// client-supplied extension, lower-cased and without the leading dot.
type LocalFile struct {
	Path              string
	DeclaredExtension string
}

// RemoteLink references a spoken-word video by URL or bare id.
type RemoteLink struct {
	URL string
}

// RawText is pasted text that needs no extraction.
type RawText struct {
	Content string
}

func (LocalFile) sourceKind() string  { return "file" }
func (RemoteLink) sourceKind() string { return "link" }
func (RawText) sourceKind() string    { return "text" }

// SourceKind returns a short label for src, used in logs and metrics.
func SourceKind(src SourceDescriptor) string {
	if src == nil {
		return "unknown"
	}
	return src.sourceKind()
}

// NewLocalFile builds a LocalFile whose declared extension comes from the
// client's original file name rather than the staged path.
func NewLocalFile(path, originalName string) LocalFile {
	return LocalFile{
		Path:              path,
		DeclaredExtension: NormalizeExtension(filepath.Ext(originalName)),
	}
}

// NormalizeExtension lower-cases ext and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// ColorKind is the channel layout of a RawImageSample.
type ColorKind int

const (
	ColorGrayscale ColorKind = iota + 1
	ColorRGB
	ColorRGBA
)

func (k ColorKind) String() string {
	switch k {
	case ColorGrayscale:
		return "grayscale"
	case ColorRGB:
		return "rgb"
	case ColorRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// Stride is the number of bytes per pixel. Unknown kinds are treated as RGBA.
func (k ColorKind) Stride() int {
	switch k {
	case ColorGrayscale:
		return 1
	case ColorRGB:
		return 3
	default:
		return 4
	}
}

// RawImageSample is a decoded pixel buffer as produced by a document renderer.
type RawImageSample struct {
	Pix    []byte
	Width  int
	Height int
	Kind   ColorKind
}

// CanonicalImage is always 4 bytes per pixel: len(RGBA) == Width*Height*4.
type CanonicalImage struct {
	RGBA   []byte
	Width  int
	Height int
}

// EncodedImage is a compressed image ready to ship to a vision model.
type EncodedImage struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Base64 returns the standard base64 encoding of the image bytes.
func (e EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

// DataURL returns the image as a data URL.
func (e EncodedImage) DataURL() string {
	mime := e.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + e.Base64()
}

// ExtractedText is the normalized output of any extraction. Empty means
// there was nothing of interest, not a failure.
type ExtractedText struct {
	Text string `json:"text"`
}

// IsEmpty reports whether the extraction produced no text.
func (t ExtractedText) IsEmpty() bool {
	return strings.TrimSpace(t.Text) == ""
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart          EventType = "start"
	EventPageProcessing EventType = "page_processing"
	EventImageProcessed EventType = "image_processed"
	EventImageSkipped   EventType = "image_skipped"
	EventPageComplete   EventType = "page_complete"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	RequestID  string      `json:"request_id,omitempty"`
	PageNumber int         `json:"page_number,omitempty"`
	Total      int         `json:"total,omitempty"` // pages, on a PDF start event
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// EmitEvent sends event on eventCh without blocking. A nil channel is a no-op.
// It reports whether the event was delivered.
func EmitEvent(eventCh chan<- StreamEvent, event StreamEvent) bool {
	if eventCh == nil {
		return false
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case eventCh <- event:
		return true
	default:
		return false
	}
}
