package util

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the orchestrators. Collaborator errors are wrapped
// with one of these so callers can classify them with errors.Is.
var (
	ErrValidation          = errors.New("invalid request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrDuplicate           = errors.New("url already ingested")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrStorage             = errors.New("storage failure")
	ErrInternal            = errors.New("internal error")

	ErrEmbeddingUnavailable = fmt.Errorf("embedding service unavailable: %w", ErrUpstreamUnavailable)
	ErrEmbeddingMalformed   = fmt.Errorf("embedding response malformed: %w", ErrUpstreamUnavailable)
	ErrFetchFailed          = fmt.Errorf("page fetch failed: %w", ErrUpstreamUnavailable)
	ErrSummaryMalformed     = fmt.Errorf("summary response malformed: %w", ErrUpstreamUnavailable)
	ErrNoExtractableText    = fmt.Errorf("no extractable text: %w", ErrUpstreamUnavailable)
)

// Numeric result statuses carried in every response body.
const (
	StatusOK           = 200
	StatusDuplicate    = 300
	StatusBadRequest   = 400
	StatusUnauthorized = 401
	StatusInternal     = 500
)

// StatusOf maps an error onto the response status convention.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrDuplicate):
		return StatusDuplicate
	case errors.Is(err, ErrValidation):
		return StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return StatusUnauthorized
	default:
		return StatusInternal
	}
}

// Kind names the taxonomy bucket of err, for logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}

// StorageError tags err as a datastore or bucket failure.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
