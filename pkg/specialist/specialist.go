package specialist

import (
	"context"
	"time"
)

// Handler is a domain specialist invoked with the user's text.
type Handler interface {
	// Handle produces the specialist's reply. threadID correlates the
	// exchange with its conversation transcript.
	Handle(ctx context.Context, text, threadID string) (string, error)

	// Target returns the specialist's registry identifier.
	Target() string
}

// Result captures one dispatch outcome. Exactly one of Response or Err is
// set when the call completed; both are empty only if the call could not
// be attempted.
type Result struct {
	Target        string        `json:"target"`
	Response      string        `json:"response,omitempty"`
	Err           string        `json:"error,omitempty"`
	Transient     bool          `json:"transient,omitempty"`
	Latency       time.Duration `json:"latency,omitempty"`
	KnowledgeUsed bool          `json:"knowledge_used,omitempty"`
	Sources       []string      `json:"sources,omitempty"`
}

// OK reports whether the dispatch produced a response without error.
func (r Result) OK() bool {
	return r.Err == ""
}
