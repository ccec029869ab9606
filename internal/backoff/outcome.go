package backoff

import (
	"context"
	"time"
)

// Outcome summarises one ExecuteWithBackoff call.
type Outcome struct {
	RequestID  string
	Method     string
	URL        string
	Host       string
	Policy     HostPolicy
	Attempts   int
	Waited     time.Duration
	StatusCode int // last status observed, 0 when no response arrived
	Replayable bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the call returned a response to the caller.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Observer receives the outcome of every call. Implementations must not block
// for long and must not fail the request.
type Observer interface {
	ObserveOutcome(ctx context.Context, outcome Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, outcome Outcome)

// ObserveOutcome calls f.
func (f ObserverFunc) ObserveOutcome(ctx context.Context, outcome Outcome) {
	f(ctx, outcome)
}
