package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeMalformedImage    ErrorType = "malformed_image_data"
	ErrorTypeEncoding          ErrorType = "encoding"
	ErrorTypeDocumentLoad      ErrorType = "document_load"
	ErrorTypeInvalidResponse   ErrorType = "invalid_model_response"
	ErrorTypeTranscript        ErrorType = "transcript_unavailable"
	ErrorTypeAPI               ErrorType = "api"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeIO                ErrorType = "io"
)

// Sentinels for errors.Is. A DomainError matches the sentinel of its type.
var (
	ErrUnsupportedFormat     = &DomainError{Type: ErrorTypeUnsupportedFormat, Message: "unsupported format"}
	ErrMalformedImageData    = &DomainError{Type: ErrorTypeMalformedImage, Message: "malformed image data"}
	ErrEncoding              = &DomainError{Type: ErrorTypeEncoding, Message: "encoding failed"}
	ErrDocumentLoad          = &DomainError{Type: ErrorTypeDocumentLoad, Message: "document load failed"}
	ErrInvalidModelResponse  = &DomainError{Type: ErrorTypeInvalidResponse, Message: "invalid model response"}
	ErrTranscriptUnavailable = &DomainError{Type: ErrorTypeTranscript, Message: "transcript unavailable"}
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type      ErrorType
	Message   string
	Err       error
	Retryable bool
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError of the same type.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func UnsupportedFormatError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnsupportedFormat, message, err)
}

func MalformedImageError(message string, err error) *DomainError {
	return NewError(ErrorTypeMalformedImage, message, err)
}

func EncodingError(message string, err error) *DomainError {
	return NewError(ErrorTypeEncoding, message, err)
}

func DocumentLoadError(message string, err error) *DomainError {
	return NewError(ErrorTypeDocumentLoad, message, err)
}

// InvalidModelResponseError is retryable: a second call may well produce conforming output.
func InvalidModelResponseError(message string, err error) *DomainError {
	e := NewError(ErrorTypeInvalidResponse, message, err)
	e.Retryable = true
	return e
}

func TranscriptUnavailableError(message string, err error) *DomainError {
	return NewError(ErrorTypeTranscript, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

// RetryableAPIError marks a transient provider failure (429, 5xx, timeout).
func RetryableAPIError(message string, err error) *DomainError {
	e := NewError(ErrorTypeAPI, message, err)
	e.Retryable = true
	return e
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// TypeOf returns the type of the outermost DomainError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsRetryable reports whether the caller may reasonably try the operation again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var de *DomainError
	for e := err; errors.As(e, &de); e = de.Err {
		if de.Retryable {
			return true
		}
		if de.Err == nil {
			break
		}
	}
	return false
}
