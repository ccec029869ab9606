package backoff

import (
	"net/http"
	"strings"
)

// Classify maps the request's target host to a policy. Requests without a
// host, or with a host missing from the table, map to PolicyOther.
func (r *Rules) Classify(req *http.Request) HostPolicy {
	if req == nil || req.URL == nil {
		return PolicyOther
	}
	return r.ClassifyHost(req.URL.Hostname())
}

// ClassifyHost classifies a bare host name (no scheme, no port).
// Matching is exact unless subdomain matching is enabled.
func (r *Rules) ClassifyHost(host string) HostPolicy {
	host = normalizeHost(host)
	if host == "" {
		return PolicyOther
	}

	if policy, ok := r.hosts[host]; ok {
		return policy
	}

	if !r.matchSubdomains {
		return PolicyOther
	}

	// Walk up the labels: a.b.twitch.tv -> b.twitch.tv -> twitch.tv
	for i := strings.IndexByte(host, '.'); i >= 0; i = strings.IndexByte(host, '.') {
		host = host[i+1:]
		if policy, ok := r.hosts[host]; ok {
			return policy
		}
	}
	return PolicyOther
}
