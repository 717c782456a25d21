package errors

import (
	"errors"
	"fmt"
)

// Submission failure kinds. Every pipeline failure wraps exactly one of these.

var (
	// ErrValidation indicates a field failed local validation
	ErrValidation = errors.New("validation failed")

	// ErrSpamRejected indicates the honeypot field was filled in
	ErrSpamRejected = errors.New("spam rejected")

	// ErrNotConfigured indicates the waitlist endpoint is not configured
	ErrNotConfigured = errors.New("endpoint not configured")

	// ErrTransport indicates the endpoint could not be reached or answered with a non-2xx status
	ErrTransport = errors.New("transport error")

	// ErrRemote indicates the endpoint explicitly reported a failure
	ErrRemote = errors.New("remote error")

	// ErrInFlight indicates another submission for the same form is still running
	ErrInFlight = errors.New("submission in flight")
)

// FieldError is a validation failure on a single field.
// Message is safe to show to the submitter.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Field, e.Message, ErrValidation)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// ValidationError creates a validation error for a field
func ValidationError(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// RemoteRejection carries the failure message reported by the endpoint, if any
type RemoteRejection struct {
	Message string
}

func (e *RemoteRejection) Error() string {
	if e.Message == "" {
		return ErrRemote.Error()
	}
	return fmt.Sprintf("%s: %s", e.Message, ErrRemote)
}

func (e *RemoteRejection) Unwrap() error {
	return ErrRemote
}

// RemoteError creates a remote error carrying the endpoint's message
func RemoteError(msg string) error {
	return &RemoteRejection{Message: msg}
}

// TransportError wraps an underlying transport failure
func TransportError(err error) error {
	if err == nil {
		return ErrTransport
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
