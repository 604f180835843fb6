// Package apperr defines the error kinds surfaced by the services. Callers
// wrap them with fmt.Errorf("...: %w", err) and test with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound covers both a missing entity and an entity owned by someone
	// else. The two cases are indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable means the persistence layer could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrGenerationFailed means the text generation call errored, timed out
	// or was rejected because the input was too large.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidGenerationOutput means generation succeeded but the reply did
	// not parse or lacked required fields.
	ErrInvalidGenerationOutput = errors.New("invalid generation output")

	// ErrInvalidInput is returned for caller mistakes such as an empty message.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a unique value, such as a username, is taken.
	ErrConflict = errors.New("conflict")
)

// Code returns a stable machine-readable code for err, or "internal_error".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, ErrInvalidGenerationOutput):
		return "invalid_generation_output"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal_error"
	}
}
