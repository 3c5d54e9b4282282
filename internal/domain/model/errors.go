package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared across layers. Callers classify failures with
// errors.Is against these values.
var (
	// ErrValidation marks bad caller input: coordinates, mode, geometry.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidGeometry marks a route geometry with fewer than two vertices.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrDataLoad marks missing or malformed incident data.
	ErrDataLoad = errors.New("incident data unavailable")
	// ErrUpstream marks a failure in the external routing provider.
	ErrUpstream = errors.New("upstream provider failed")
	// ErrPartialScoring marks one route candidate that could not be scored.
	ErrPartialScoring = errors.New("route candidate scoring failed")
)

// ValidationError describes rejected input. It matches ErrValidation and,
// when Err is set, the more specific cause as well.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation as a match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Unwrap exposes the specific cause, if any.
func (e *ValidationError) Unwrap() error { return e.Err }

// DataLoadError identifies the source and category whose incident data could
// not be loaded. Index is the offending record position, or -1 when the
// failure is not tied to a single record.
type DataLoadError struct {
	Source   string
	Category Category
	Index    int
	Err      error
}

func (e *DataLoadError) Error() string {
	switch {
	case e.Category == "":
		return fmt.Sprintf("load incidents from %s: %v", e.Source, e.Err)
	case e.Index < 0:
		return fmt.Sprintf("load incidents from %s category %q: %v", e.Source, e.Category, e.Err)
	default:
		return fmt.Sprintf("load incidents from %s category %q record %d: %v", e.Source, e.Category, e.Index, e.Err)
	}
}

// Is reports ErrDataLoad as a match.
func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }

func (e *DataLoadError) Unwrap() error { return e.Err }

// UpstreamError wraps a routing provider failure. It is always retryable from
// the caller's point of view; nothing in this service retries it.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Is reports ErrUpstream as a match.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the request.
func (e *UpstreamError) Retryable() bool { return true }

// CandidateError reports that the route candidate at Index failed to score.
type CandidateError struct {
	Index int
	Err   error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("route %d: %v", e.Index, e.Err)
}

// Is reports ErrPartialScoring as a match.
func (e *CandidateError) Is(target error) bool { return target == ErrPartialScoring }

func (e *CandidateError) Unwrap() error { return e.Err }
