package backoff

import (
	"fmt"
	"net/http"
)

// DuplicationKind tags whether a request can be re-issued.
type DuplicationKind int

const (
	NotDuplicable DuplicationKind = iota
	Duplicable
)

func (k DuplicationKind) String() string {
	if k == Duplicable {
		return "duplicable"
	}
	return "not_duplicable"
}

// Duplication is the result of checking a request for replayability.
// Only a Duplicable value can produce attempts.
type Duplication struct {
	Kind     DuplicationKind
	template *http.Request
}

// Duplicate checks whether req can be re-issued with an identical body.
// Requests without a body, or whose body can be re-obtained through GetBody,
// are duplicable. http.NewRequest sets GetBody for bytes.Buffer,
// bytes.Reader and strings.Reader bodies.
func Duplicate(req *http.Request) Duplication {
	if req == nil {
		return Duplication{Kind: NotDuplicable}
	}
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return Duplication{Kind: Duplicable, template: req}
	}
	return Duplication{Kind: NotDuplicable, template: req}
}

// Request builds a fresh copy of the original request for one attempt.
func (d Duplication) Request() (*http.Request, error) {
	if d.Kind != Duplicable || d.template == nil {
		return nil, ErrNonReplayable
	}

	clone := d.template.Clone(d.template.Context())
	if d.template.Body == nil || d.template.Body == http.NoBody {
		return clone, nil
	}

	body, err := d.template.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to duplicate request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}
