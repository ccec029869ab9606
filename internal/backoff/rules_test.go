package backoff

import (
	"net/http"
	"testing"

	"github.com/aleister1102/hostbackoff/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostPolicy(t *testing.T) {
	tests := []struct {
		name     string
		expected HostPolicy
	}{
		{"twitch", PolicyTwitch},
		{"Google", PolicyGoogle},
		{" youtube ", PolicyYoutube},
		{"other", PolicyOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := ParseHostPolicy(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, policy)
		})
	}

	_, err := ParseHostPolicy("facebook")
	assert.Error(t, err)
}

func TestHostPolicy_String(t *testing.T) {
	assert.Equal(t, "twitch", PolicyTwitch.String())
	assert.Equal(t, "google", PolicyGoogle.String())
	assert.Equal(t, "youtube", PolicyYoutube.String())
	assert.Equal(t, "other", PolicyOther.String())
	assert.Equal(t, "other", HostPolicy(42).String())
}

func TestClassify_DefaultTable(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		url      string
		expected HostPolicy
	}{
		{"https://twitch.tv/helix/streams", PolicyTwitch},
		{"https://google.com/search?q=go", PolicyGoogle},
		{"https://youtube.com/watch?v=1", PolicyYoutube},
		{"https://TWITCH.TV/", PolicyTwitch},
		{"https://twitch.tv:8443/", PolicyTwitch},
		{"https://api.twitch.tv/helix", PolicyOther},
		{"https://www.google.com/", PolicyOther},
		{"https://example.com/", PolicyOther},
		{"http://127.0.0.1:8080/", PolicyOther},
		{"/relative/path", PolicyOther},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rules.Classify(req))
		})
	}
}

func TestClassify_NilRequest(t *testing.T) {
	rules := DefaultRules()
	assert.Equal(t, PolicyOther, rules.Classify(nil))
	assert.Equal(t, PolicyOther, rules.Classify(&http.Request{}))
	assert.Equal(t, PolicyOther, rules.ClassifyHost(""))
}

func TestClassify_MatchSubdomains(t *testing.T) {
	cfg := config.NewDefaultBackoffConfig()
	cfg.MatchSubdomains = true
	rules, err := NewRules(cfg)
	require.NoError(t, err)

	assert.Equal(t, PolicyTwitch, rules.ClassifyHost("api.twitch.tv"))
	assert.Equal(t, PolicyGoogle, rules.ClassifyHost("www.googleapis.google.com"))
	assert.Equal(t, PolicyYoutube, rules.ClassifyHost("m.youtube.com"))
	assert.Equal(t, PolicyOther, rules.ClassifyHost("nottwitch.tv"))
	assert.Equal(t, PolicyOther, rules.ClassifyHost("twitch.tv.evil.com"))
}

func TestNewRules_CustomTables(t *testing.T) {
	cfg := config.BackoffConfig{
		Hosts:             map[string]string{"api.twitch.tv": "twitch", "Example.COM": "google"},
		MaxAttempts:       map[string]int{"twitch": 3},
		GoogleBase:        3,
		GoogleCeilingSecs: 100,
		OtherWaitSecs:     7,
		TwitchResetHeader: "x-ratelimit-reset",
	}

	rules, err := NewRules(cfg)
	require.NoError(t, err)

	assert.Equal(t, PolicyTwitch, rules.ClassifyHost("api.twitch.tv"))
	assert.Equal(t, PolicyGoogle, rules.ClassifyHost("example.com"))
	assert.Equal(t, PolicyOther, rules.ClassifyHost("twitch.tv"))
	assert.Equal(t, 3, rules.MaxAttempts(PolicyTwitch))
	assert.Equal(t, config.DefaultMaxBackoffAttempts, rules.MaxAttempts(PolicyGoogle))
	assert.Equal(t, "X-Ratelimit-Reset", rules.ResetHeader())
}

func TestNewRules_ZeroValuesUseDefaults(t *testing.T) {
	rules, err := NewRules(config.BackoffConfig{})
	require.NoError(t, err)

	assert.Equal(t, PolicyOther, rules.ClassifyHost("twitch.tv"))
	assert.Equal(t, config.DefaultTwitchResetHeader, rules.ResetHeader())
	for _, policy := range AllPolicies() {
		assert.Equal(t, config.DefaultMaxBackoffAttempts, rules.MaxAttempts(policy))
	}
}

func TestNewRules_InvalidInput(t *testing.T) {
	_, err := NewRules(config.BackoffConfig{Hosts: map[string]string{"twitch.tv": "bogus"}})
	assert.Error(t, err)

	_, err = NewRules(config.BackoffConfig{MaxAttempts: map[string]int{"bogus": 1}})
	assert.Error(t, err)

	_, err = NewRules(config.BackoffConfig{MaxAttempts: map[string]int{"twitch": 0}})
	assert.Error(t, err)
}

func TestNewRules_RejectsWaitsBeyondMaxDuration(t *testing.T) {
	tooLong := int64(maxWaitSeconds) + 1

	cfg := config.NewDefaultBackoffConfig()
	cfg.GoogleCeilingSecs = int(tooLong)
	_, err := NewRules(cfg)
	assert.Error(t, err)

	cfg = config.NewDefaultBackoffConfig()
	cfg.OtherWaitSecs = int(tooLong)
	_, err = NewRules(cfg)
	assert.Error(t, err)
}
