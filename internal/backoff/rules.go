package backoff

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aleister1102/hostbackoff/internal/config"
)

// Rules holds the read-only decision tables shared by every executor call.
// Build it once with NewRules or DefaultRules and pass it by pointer.
type Rules struct {
	hosts           map[string]HostPolicy
	maxAttempts     map[HostPolicy]int
	googleBase      uint64
	googleCeiling   uint64
	otherWait       uint64
	resetHeader     string
	matchSubdomains bool
}

// NewRules builds decision tables from configuration. Zero values fall back to defaults.
func NewRules(cfg config.BackoffConfig) (*Rules, error) {
	defaults := config.NewDefaultBackoffConfig()

	r := &Rules{
		hosts:           make(map[string]HostPolicy, len(cfg.Hosts)),
		maxAttempts:     make(map[HostPolicy]int, len(AllPolicies())),
		googleBase:      uint64(orDefault(cfg.GoogleBase, defaults.GoogleBase)),
		googleCeiling:   uint64(orDefault(cfg.GoogleCeilingSecs, defaults.GoogleCeilingSecs)),
		otherWait:       uint64(orDefault(cfg.OtherWaitSecs, defaults.OtherWaitSecs)),
		resetHeader:     http.CanonicalHeaderKey(cfg.TwitchResetHeader),
		matchSubdomains: cfg.MatchSubdomains,
	}
	if r.googleCeiling > uint64(maxWaitSeconds) || r.otherWait > uint64(maxWaitSeconds) {
		return nil, fmt.Errorf("backoff waits must not exceed %d seconds", maxWaitSeconds)
	}
	if r.resetHeader == "" {
		r.resetHeader = defaults.TwitchResetHeader
	}

	for domain, name := range cfg.Hosts {
		policy, err := ParseHostPolicy(name)
		if err != nil {
			return nil, fmt.Errorf("host %q: %w", domain, err)
		}
		r.hosts[normalizeHost(domain)] = policy
	}

	for _, policy := range AllPolicies() {
		r.maxAttempts[policy] = config.DefaultMaxBackoffAttempts
	}
	for name, limit := range cfg.MaxAttempts {
		policy, err := ParseHostPolicy(name)
		if err != nil {
			return nil, fmt.Errorf("max attempts: %w", err)
		}
		if limit < 1 {
			return nil, fmt.Errorf("max attempts for %s must be positive, got %d", policy, limit)
		}
		r.maxAttempts[policy] = limit
	}

	return r, nil
}

// DefaultRules returns the built-in tables: twitch.tv, google.com and youtube.com,
// 50 attempts for every policy, 2^attempt seconds capped at 3600 for google/youtube.
func DefaultRules() *Rules {
	r, err := NewRules(config.NewDefaultBackoffConfig())
	if err != nil {
		panic(fmt.Sprintf("backoff: invalid default rules: %v", err))
	}
	return r
}

// MaxAttempts returns the attempt ceiling for a policy.
func (r *Rules) MaxAttempts(policy HostPolicy) int {
	return r.maxAttempts[policy]
}

// ResetHeader returns the canonical name of the twitch reset header.
func (r *Rules) ResetHeader() string {
	return r.resetHeader
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
