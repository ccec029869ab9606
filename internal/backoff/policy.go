package backoff

import (
	"fmt"
	"strings"

	"github.com/aleister1102/hostbackoff/internal/config"
)

// HostPolicy is the backoff category a request's target host falls into.
type HostPolicy int

const (
	// PolicyOther covers every host without a dedicated policy. It never backs off.
	PolicyOther HostPolicy = iota
	PolicyTwitch
	PolicyGoogle
	PolicyYoutube
)

// String returns the configuration name of the policy
func (p HostPolicy) String() string {
	switch p {
	case PolicyTwitch:
		return config.PolicyNameTwitch
	case PolicyGoogle:
		return config.PolicyNameGoogle
	case PolicyYoutube:
		return config.PolicyNameYoutube
	default:
		return config.PolicyNameOther
	}
}

// ParseHostPolicy maps a configuration name to a HostPolicy.
func ParseHostPolicy(name string) (HostPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case config.PolicyNameTwitch:
		return PolicyTwitch, nil
	case config.PolicyNameGoogle:
		return PolicyGoogle, nil
	case config.PolicyNameYoutube:
		return PolicyYoutube, nil
	case config.PolicyNameOther:
		return PolicyOther, nil
	default:
		return PolicyOther, fmt.Errorf("unknown host policy %q", name)
	}
}

// usesExponentialBackoff reports whether the policy backs off on 400/403 with base^attempt waits.
func (p HostPolicy) usesExponentialBackoff() bool {
	return p == PolicyGoogle || p == PolicyYoutube
}

// AllPolicies lists every policy, in declaration order.
func AllPolicies() []HostPolicy {
	return []HostPolicy{PolicyOther, PolicyTwitch, PolicyGoogle, PolicyYoutube}
}
