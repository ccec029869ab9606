package backoff

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxResetTimestamp is 9999-12-31T23:59:59Z.
const maxResetTimestamp = 253402300799

// maxWaitSeconds is the longest wait a time.Duration can hold.
const maxWaitSeconds = math.MaxInt64 / int64(time.Second)

// BackoffSeconds computes how long to wait before the next attempt.
// It is only meaningful for responses IsThrottled accepted.
//
// Twitch waits until the Unix time carried by the reset header, never less
// than one second. Google and Youtube wait base^attempt seconds capped at the
// ceiling. Every other policy waits a fixed number of seconds.
func (r *Rules) BackoffSeconds(resp *http.Response, policy HostPolicy, attempt int, now time.Time) (uint64, error) {
	switch policy {
	case PolicyTwitch:
		reset, err := r.resetTimestamp(resp)
		if err != nil {
			return 0, err
		}
		wait := reset - now.Unix()
		if wait <= 0 {
			return 1, nil
		}
		if wait > maxWaitSeconds {
			return 0, &MetadataError{
				Header: r.resetHeader,
				Value:  strconv.FormatInt(reset, 10),
				Reason: "timestamp out of range",
			}
		}
		return uint64(wait), nil
	case PolicyGoogle, PolicyYoutube:
		return exponentialSeconds(r.googleBase, attempt, r.googleCeiling), nil
	default:
		return r.otherWait, nil
	}
}

// resetTimestamp reads the reset header as whole Unix seconds.
func (r *Rules) resetTimestamp(resp *http.Response) (int64, error) {
	if resp == nil {
		return 0, &MetadataError{Header: r.resetHeader, Reason: "no response to read"}
	}

	values := resp.Header.Values(r.resetHeader)
	if len(values) == 0 {
		return 0, &MetadataError{Header: r.resetHeader, Reason: "header missing"}
	}

	raw := strings.TrimSpace(values[0])
	reset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &MetadataError{Header: r.resetHeader, Value: raw, Reason: "not an integer", Err: err}
	}
	if reset < 0 || reset > maxResetTimestamp {
		return 0, &MetadataError{Header: r.resetHeader, Value: raw, Reason: "timestamp out of range"}
	}
	return reset, nil
}

// exponentialSeconds returns min(base^attempt, ceiling) without overflowing.
func exponentialSeconds(base uint64, attempt int, ceiling uint64) uint64 {
	if attempt < 0 {
		attempt = 0
	}

	result := uint64(1)
	for i := 0; i < attempt; i++ {
		if result > ceiling/base {
			return ceiling
		}
		result *= base
	}
	if result > ceiling {
		return ceiling
	}
	return result
}
