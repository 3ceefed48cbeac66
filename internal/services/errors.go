package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a candidate does not exist.
	ErrNotFound = errors.New("candidate not found")

	// ErrDuplicateEmail is returned when an update would give two candidates the same email.
	ErrDuplicateEmail = errors.New("candidate email already exists")

	// ErrVectorIndexDisabled is returned by operations that need Qdrant when it is not configured.
	ErrVectorIndexDisabled = errors.New("vector index is not configured")
)

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Services named in ExternalServiceError.
const (
	ServiceTextExtraction  = "text-extraction"
	ServiceFieldExtraction = "field-extraction"
	ServiceEmbedding       = "embedding"
	ServiceStore           = "store"
	ServiceFileStore       = "file-store"
	ServiceVectorIndex     = "vector-index"
)

// ExternalServiceError wraps a failure of a collaborator the core depends on.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func external(service string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalServiceError{Service: service, Err: err}
}

// FilterError reports a filter that could not read its data.
type FilterError struct {
	Filter string
	Err    error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s filter failed: %v", e.Filter, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}
