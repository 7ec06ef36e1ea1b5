package services

import "fmt"

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// NotReadyError means the question set has not reached completed yet.
type NotReadyError struct{ Message string }

func (e *NotReadyError) Error() string { return e.Message }

type ExpiredError struct{ Message string }

func (e *ExpiredError) Error() string { return e.Message }

type AlreadyUsedError struct{ Message string }

func (e *AlreadyUsedError) Error() string { return e.Message }

type AlreadySubmittedError struct{ Message string }

func (e *AlreadySubmittedError) Error() string { return e.Message }

// UpstreamError reports that the job worker could not be reached or refused
// the job. Nothing was changed; the caller may retry.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
