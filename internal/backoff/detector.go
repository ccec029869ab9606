package backoff

import "net/http"

// IsThrottled reports whether the response is a rate-limit signal for the policy.
//
// Successful responses are never throttled. Twitch throttles with 429 only.
// Google and Youtube are treated as throttled on 400 and 403, which also
// catches ordinary bad-request and forbidden errors. Other hosts never are.
func (r *Rules) IsThrottled(resp *http.Response, policy HostPolicy) bool {
	if resp == nil || isSuccess(resp.StatusCode) {
		return false
	}

	switch policy {
	case PolicyTwitch:
		return resp.StatusCode == http.StatusTooManyRequests
	case PolicyGoogle, PolicyYoutube:
		return resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest
	default:
		return false
	}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
