package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := DocumentLoadError("open failed", errors.New("boom"))
	assert.Equal(t, "[document_load] open failed: boom", err.Error())

	bare := UnsupportedFormatError("gif", nil)
	assert.Equal(t, "[unsupported_format] gif", bare.Error())
}

func TestDomainError_IsMatchesSentinelByType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"unsupported", UnsupportedFormatError("x", nil), ErrUnsupportedFormat, true},
		{"wrapped malformed", fmt.Errorf("page 2: %w", MalformedImageError("bad stride", nil)), ErrMalformedImageData, true},
		{"encoding", EncodingError("jpeg", nil), ErrEncoding, true},
		{"document load", DocumentLoadError("x", nil), ErrDocumentLoad, true},
		{"invalid response", InvalidModelResponseError("x", nil), ErrInvalidModelResponse, true},
		{"transcript", TranscriptUnavailableError("x", nil), ErrTranscriptUnavailable, true},
		{"type mismatch", EncodingError("x", nil), ErrDocumentLoad, false},
		{"plain error", errors.New("x"), ErrEncoding, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestDomainError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("locale en: no captions")
	err := TranscriptUnavailableError("all locales failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeTranscript, TypeOf(fmt.Errorf("wrap: %w", err)))
	assert.Equal(t, ErrorType(""), TypeOf(cause))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", APIError("vision call", context.DeadlineExceeded), true},
		{"retryable api", RetryableAPIError("HTTP 503", nil), true},
		{"non retryable api", APIError("HTTP 400", nil), false},
		{"invalid model response", InvalidModelResponseError("not json", nil), true},
		{"unsupported format", UnsupportedFormatError("gif", nil), false},
		{"document load", DocumentLoadError("x", nil), false},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
