package backoff

import (
	"math"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twitchResponse(reset string) *http.Response {
	resp := responseWithStatus(http.StatusTooManyRequests)
	if reset != "" {
		resp.Header.Set("Ratelimit-Reset", reset)
	}
	return resp
}

func TestBackoffSeconds_GoogleExponential(t *testing.T) {
	rules := DefaultRules()
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		attempt  int
		expected uint64
	}{
		{1, 2},
		{2, 4},
		{3, 8},
		{5, 32},
		{11, 2048},
		{12, 3600},
		{50, 3600},
		{1000, 3600},
	}

	for _, tt := range tests {
		for _, policy := range []HostPolicy{PolicyGoogle, PolicyYoutube} {
			seconds, err := rules.BackoffSeconds(responseWithStatus(http.StatusForbidden), policy, tt.attempt, now)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, seconds, "%s attempt %d", policy, tt.attempt)
		}
	}
}

func TestBackoffSeconds_TwitchResetInFuture(t *testing.T) {
	rules := DefaultRules()
	now := time.Unix(1_700_000_000, 0)

	seconds, err := rules.BackoffSeconds(twitchResponse(strconv.FormatInt(now.Unix()+10, 10)), PolicyTwitch, 1, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), seconds)
}

func TestBackoffSeconds_TwitchUsesWholeSeconds(t *testing.T) {
	rules := DefaultRules()
	now := time.Unix(1_700_000_000, 900*int64(time.Millisecond))

	seconds, err := rules.BackoffSeconds(twitchResponse("1700000003"), PolicyTwitch, 1, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seconds)
}

func TestBackoffSeconds_TwitchResetInPastClampsToOne(t *testing.T) {
	rules := DefaultRules()
	now := time.Unix(1_700_000_000, 0)

	for _, reset := range []string{"1699999990", "1700000000", "0"} {
		seconds, err := rules.BackoffSeconds(twitchResponse(reset), PolicyTwitch, 1, now)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), seconds, "reset %s", reset)
	}
}

func TestBackoffSeconds_TwitchMalformedHeader(t *testing.T) {
	rules := DefaultRules()
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		reset string
	}{
		{"missing", ""},
		{"non-numeric", "soon"},
		{"fractional", "1700000010.5"},
		{"negative", "-5"},
		{"beyond year 9999", strconv.FormatInt(math.MaxInt64, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.BackoffSeconds(twitchResponse(tt.reset), PolicyTwitch, 1, now)
			require.Error(t, err)
			var metaErr *MetadataError
			require.ErrorAs(t, err, &metaErr)
			assert.Equal(t, "Ratelimit-Reset", metaErr.Header)
		})
	}

	_, err := rules.BackoffSeconds(nil, PolicyTwitch, 1, now)
	var metaErr *MetadataError
	assert.ErrorAs(t, err, &metaErr)
}

func TestBackoffSeconds_TwitchResetBeyondMaxDuration(t *testing.T) {
	rules := DefaultRules()
	now := time.Unix(1_790_000_000, 0)

	// The latest accepted timestamp is further away than a time.Duration can express.
	_, err := rules.BackoffSeconds(twitchResponse("253402300799"), PolicyTwitch, 1, now)
	var metaErr *MetadataError
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, "timestamp out of range", metaErr.Reason)

	seconds, err := rules.BackoffSeconds(twitchResponse(strconv.FormatInt(now.Unix()+maxWaitSeconds, 10)), PolicyTwitch, 1, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(maxWaitSeconds), seconds)
	assert.Greater(t, time.Duration(seconds)*time.Second, time.Duration(0))
}

func TestBackoffSeconds_OtherIsFixed(t *testing.T) {
	rules := DefaultRules()
	for _, attempt := range []int{1, 2, 50} {
		seconds, err := rules.BackoffSeconds(responseWithStatus(http.StatusTooManyRequests), PolicyOther, attempt, time.Now())
		require.NoError(t, err)
		assert.Equal(t, uint64(5), seconds)
	}
}

func TestExponentialSeconds_NoOverflow(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), exponentialSeconds(2, 200, math.MaxUint64))
	assert.Equal(t, uint64(1), exponentialSeconds(2, 0, 3600))
	assert.Equal(t, uint64(1), exponentialSeconds(2, -3, 3600))
	assert.Equal(t, uint64(27), exponentialSeconds(3, 3, 3600))
}
