package backoff

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxDrainBytes bounds how much of a discarded throttle body is read so the
// connection can be reused.
const maxDrainBytes = 64 << 10

// Doer executes a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc suspends until d has elapsed or ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Clock returns the current time.
type Clock func() time.Time

// Executor re-issues requests that a known provider answered with a
// rate-limit signal. It keeps no state between calls, so one Executor can
// serve any number of concurrent callers.
type Executor struct {
	doer     Doer
	rules    *Rules
	logger   zerolog.Logger
	sleep    SleepFunc
	now      Clock
	observer Observer
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithSleeper replaces the wait primitive.
func WithSleeper(sleep SleepFunc) ExecutorOption {
	return func(e *Executor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithClock replaces the time source used for reset-header arithmetic.
func WithClock(now Clock) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithObserver registers an observer notified after every call.
func WithObserver(observer Observer) ExecutorOption {
	return func(e *Executor) {
		e.observer = observer
	}
}

// NewExecutor creates a new Executor. A nil rules value uses DefaultRules.
func NewExecutor(doer Doer, rules *Rules, logger zerolog.Logger, opts ...ExecutorOption) *Executor {
	if rules == nil {
		rules = DefaultRules()
	}
	e := &Executor{
		doer:   doer,
		rules:  rules,
		logger: logger.With().Str("component", "BackoffExecutor").Logger(),
		sleep:  SleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the decision tables the executor uses.
func (e *Executor) Rules() *Rules {
	return e.rules
}

// ExecuteWithBackoff executes req and, while the response is a throttle
// signal for the request's host, waits and re-issues an identical request.
//
// It returns the first response that is not a throttle signal, whatever its
// status. Failures are *TransportError, *MetadataError, *BackoffExceededError
// or *WaitInterruptedError. Cancelling req's context aborts a pending wait.
// A request whose body cannot be duplicated is executed once, unchanged.
func (e *Executor) ExecuteWithBackoff(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, &TransportError{Err: ErrNilRequest}
	}

	ctx := req.Context()
	policy := e.rules.Classify(req)
	outcome := Outcome{
		RequestID: uuid.NewString(),
		Method:    req.Method,
		URL:       loggableURL(req.URL),
		Policy:    policy,
		StartedAt: e.now(),
	}
	if req.URL != nil {
		outcome.Host = req.URL.Hostname()
	}

	log := e.logger.With().
		Str("request_id", outcome.RequestID).
		Str("method", outcome.Method).
		Str("url", outcome.URL).
		Stringer("policy", policy).
		Logger()

	var resp *http.Response
	var err error

	dup := Duplicate(req)
	if dup.Kind == NotDuplicable {
		log.Warn().Err(ErrNonReplayable).Msg("Failed to duplicate request, executing once without backoff")
		resp, err = e.executeOnce(req, &outcome)
	} else {
		outcome.Replayable = true
		// Attempts are sent with GetBody copies, so the caller's body is never read.
		if req.Body != nil && req.Body != http.NoBody {
			_ = req.Body.Close()
		}
		resp, err = e.executeWithBackoff(ctx, dup, policy, &outcome, log)
	}

	outcome.Err = err
	outcome.FinishedAt = e.now()
	if err != nil {
		log.Error().Err(err).Int("attempts", outcome.Attempts).Msg("Request failed")
	}
	if e.observer != nil {
		e.observer.ObserveOutcome(context.WithoutCancel(ctx), outcome)
	}
	return resp, err
}

// executeOnce is the downgraded path for non-replayable requests.
func (e *Executor) executeOnce(req *http.Request, outcome *Outcome) (*http.Response, error) {
	outcome.Attempts = 1
	resp, err := e.doer.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: outcome.URL, Attempt: 1, Err: err}
	}
	outcome.StatusCode = resp.StatusCode
	return resp, nil
}

func (e *Executor) executeWithBackoff(ctx context.Context, dup Duplication, policy HostPolicy, outcome *Outcome, log zerolog.Logger) (*http.Response, error) {
	attempt := 1
	outcome.Attempts = attempt

	resp, err := e.execute(dup, attempt, outcome, log)
	if err != nil {
		return nil, err
	}

	for e.rules.IsThrottled(resp, policy) {
		e.logThrottle(log, resp, policy, attempt)

		if e.rules.LimitReached(attempt, policy) {
			discard(resp)
			return nil, &BackoffExceededError{Policy: policy, Attempts: attempt}
		}

		seconds, err := e.rules.BackoffSeconds(resp, policy, attempt, e.now())
		discard(resp)
		if err != nil {
			return nil, err
		}

		wait := time.Duration(seconds) * time.Second
		log.Info().Uint64("seconds", seconds).Int("attempt", attempt).Msg("Sleeping before retry")
		if err := e.sleep(ctx, wait); err != nil {
			return nil, &WaitInterruptedError{Attempt: attempt, Err: err}
		}
		outcome.Waited += wait

		attempt++
		outcome.Attempts = attempt
		log.Info().Int("attempt", attempt).Msg("Backoff attempt")

		resp, err = e.execute(dup, attempt, outcome, log)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// execute issues one attempt built from the original request.
func (e *Executor) execute(dup Duplication, attempt int, outcome *Outcome, log zerolog.Logger) (*http.Response, error) {
	req, err := dup.Request()
	if err != nil {
		return nil, &TransportError{Method: outcome.Method, URL: outcome.URL, Attempt: attempt, Err: err}
	}

	log.Debug().Int("attempt", attempt).Msg("Executing request")
	resp, err := e.doer.Do(req)
	if err != nil {
		return nil, &TransportError{Method: outcome.Method, URL: outcome.URL, Attempt: attempt, Err: err}
	}
	outcome.StatusCode = resp.StatusCode
	return resp, nil
}

// logThrottle records why a response was treated as a throttle signal.
// Google and Youtube get a warning with the full response because 400/403
// may also be genuine client errors.
func (e *Executor) logThrottle(log zerolog.Logger, resp *http.Response, policy HostPolicy, attempt int) {
	if policy.usesExponentialBackoff() {
		log.Warn().
			Int("status_code", resp.StatusCode).
			Str("status", resp.Status).
			Str("proto", resp.Proto).
			Interface("headers", resp.Header).
			Int64("content_length", resp.ContentLength).
			Int("attempt", attempt).
			Msg("Throttle response detected")
		return
	}
	log.Debug().
		Int("status_code", resp.StatusCode).
		Str("reset", resp.Header.Get(e.rules.ResetHeader())).
		Int("attempt", attempt).
		Msg("Throttle response detected")
}

// SleepContext waits for d, returning early with ctx.Err() when ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// discard drains a bounded amount of the body and closes it.
func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}

// loggableURL strips credentials and the query string, which often carries API keys.
func loggableURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	stripped := *u
	stripped.RawQuery = ""
	stripped.ForceQuery = false
	stripped.Fragment = ""
	return stripped.Redacted()
}
