package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned by the registry when no processor is
// registered for a requested document kind.
var ErrUnknownKind = errors.New("unknown document kind")

// ErrNoDocument is returned by extraction when the vision service
// explicitly reported that no document of the requested kind is present
// in the image. This is distinct from a malformed payload: the upstream
// call succeeded and correctly found nothing.
var ErrNoDocument = errors.New("no document detected")

// ExtractionError indicates extraction could not locate a plausible
// value in otherwise well-formed vision output. It is a hard failure:
// the pipeline stops and no draft record is produced.
type ExtractionError struct {
	DocumentKind  DocumentKind
	Reason        string
	MissingFields []string
}

func (e *ExtractionError) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("%s extraction failed: missing required fields: %s",
			e.DocumentKind, strings.Join(e.MissingFields, ", "))
	}
	return fmt.Sprintf("%s extraction failed: %s", e.DocumentKind, e.Reason)
}

// NewExtractionError builds an ExtractionError with a free-form reason.
func NewExtractionError(kind DocumentKind, reason string) *ExtractionError {
	return &ExtractionError{DocumentKind: kind, Reason: reason}
}

// NewMissingFieldsError builds an ExtractionError for structured output
// that parsed cleanly but lacks mandatory fields.
func NewMissingFieldsError(kind DocumentKind, fields ...string) *ExtractionError {
	return &ExtractionError{DocumentKind: kind, MissingFields: fields}
}

// MalformedPayloadError indicates the vision service returned output
// that could not be parsed at all (e.g. truncated or invalid JSON).
// It signals an upstream fault rather than an absent document.
type MalformedPayloadError struct {
	DocumentKind DocumentKind
	Err          error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.DocumentKind, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }
