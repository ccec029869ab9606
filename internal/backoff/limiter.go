package backoff

// LimitReached reports whether attempt has gone past the policy's ceiling.
// It is checked before any wait, so the attempt that crosses the ceiling never sleeps.
func (r *Rules) LimitReached(attempt int, policy HostPolicy) bool {
	return attempt > r.MaxAttempts(policy)
}
