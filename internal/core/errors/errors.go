// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Scoring and rubric errors.
var (
	// ErrProfileNotFound indicates no scoring profile exists under the requested name.
	// This is a configuration defect and is never retried.
	ErrProfileNotFound = errors.New("scoring profile not found")

	// ErrScoreNotFound indicates a critic response contained no parseable numeric score.
	ErrScoreNotFound = errors.New("no numeric score in critic response")
)

// Refinement errors.
var (
	// ErrImproveRejected indicates an improvement attempt produced unusable output
	// (empty, too short, or a significant length regression).
	ErrImproveRejected = errors.New("improvement rejected")
)

// Client and connection errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

	// ErrEmptyResponse indicates an empty response was received from a provider.
	ErrEmptyResponse = errors.New("empty response")
)

// Entity errors.
var (
	// ErrCompanyNotFound indicates a company record could not be found.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
