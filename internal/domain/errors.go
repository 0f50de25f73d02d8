package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies domain-specific errors
type ErrorKind string

const (
	ErrorKindUnsupportedFormat    ErrorKind = "unsupported_format"
	ErrorKindDocumentParse        ErrorKind = "document_parse"
	ErrorKindInferenceUnavailable ErrorKind = "inference_unavailable"
	ErrorKindInference            ErrorKind = "inference_error"
	ErrorKindConfig               ErrorKind = "config"
	ErrorKindInternal             ErrorKind = "internal"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(kind ErrorKind, message string, err error) *DomainError {
	return &DomainError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func UnsupportedFormatError(message string, err error) *DomainError {
	return NewError(ErrorKindUnsupportedFormat, message, err)
}

func DocumentParseError(message string, err error) *DomainError {
	return NewError(ErrorKindDocumentParse, message, err)
}

func InferenceUnavailableError(message string, err error) *DomainError {
	return NewError(ErrorKindInferenceUnavailable, message, err)
}

func InferenceError(message string, err error) *DomainError {
	return NewError(ErrorKindInference, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorKindConfig, message, err)
}

func InternalError(message string, err error) *DomainError {
	return NewError(ErrorKindInternal, message, err)
}

// KindOf returns the error kind of err, or ErrorKindInternal when err
// is not a DomainError.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKindInternal
}

// HTTPStatus maps an error to the HTTP status code it surfaces as.
// Normalizer failures are the caller's fault, inference failures are
// upstream's.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrorKindUnsupportedFormat, ErrorKindDocumentParse:
		return http.StatusBadRequest
	case ErrorKindInferenceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorKindInference:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
