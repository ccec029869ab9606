package backoff

import (
	"errors"
	"fmt"
)

// ErrNonReplayable marks a request whose body cannot be re-read. Such requests
// are executed exactly once with no backoff; the condition is logged, not returned.
var ErrNonReplayable = errors.New("request body cannot be duplicated")

// ErrNilRequest is returned when ExecuteWithBackoff is called without a request.
var ErrNilRequest = errors.New("nil request")

// TransportError represents a failure to execute the request at all
// (DNS, TLS, connection reset, transport timeout). It is never retried.
type TransportError struct {
	Method  string
	URL     string
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s '%s' on attempt %d: %v", e.Method, e.URL, e.Attempt, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// MetadataError represents a throttle response whose backoff metadata
// was missing or unparseable.
type MetadataError struct {
	Header string
	Value  string
	Reason string
	Err    error
}

func (e *MetadataError) Error() string {
	msg := fmt.Sprintf("invalid backoff metadata in header '%s': %s", e.Header, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value: %q)", e.Value)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *MetadataError) Unwrap() error {
	return e.Err
}

// BackoffExceededError is returned when the host kept throttling past its attempt ceiling.
type BackoffExceededError struct {
	Policy   HostPolicy
	Attempts int
}

func (e *BackoffExceededError) Error() string {
	return fmt.Sprintf("backoff exceeded for %s policy after %d attempts", e.Policy, e.Attempts)
}

// WaitInterruptedError is returned when the caller's context ends during a backoff wait.
type WaitInterruptedError struct {
	Attempt int
	Err     error
}

func (e *WaitInterruptedError) Error() string {
	return fmt.Sprintf("backoff wait interrupted after attempt %d: %v", e.Attempt, e.Err)
}

// Unwrap returns the context error.
func (e *WaitInterruptedError) Unwrap() error {
	return e.Err
}
