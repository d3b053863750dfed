package budget

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned when a phase has no request or token headroom left.
var ErrExhausted = errors.New("usage budget exhausted")

// Budget caps the requests and tokens one phase of work may consume.
// A zero limit on either axis means that axis is unlimited.
type Budget struct {
	requestLimit int
	tokenLimit   int
	requests     int
	tokens       int
}

// Snapshot is the serializable view of a budget, emitted at the output boundary.
type Snapshot struct {
	Phase         string `json:"phase,omitempty"`
	RequestLimit  int    `json:"request_limit,omitempty"`
	TokenLimit    int    `json:"token_limit,omitempty"`
	Requests      int    `json:"requests"`
	Tokens        int    `json:"tokens"`
	Exhausted     bool   `json:"exhausted,omitempty"`
	DegradedCalls int    `json:"degraded_calls,omitempty"`
}

// New creates a budget with the given per-phase limits.
func New(requestLimit, tokenLimit int) *Budget {
	return &Budget{requestLimit: requestLimit, tokenLimit: tokenLimit}
}

// Reserve checks that one more call fits the budget and counts it.
// It must be called before the external call is attempted; once it
// returns ErrExhausted the phase must degrade instead of calling.
func (b *Budget) Reserve() error {
	if b == nil {
		return nil
	}
	if b.Exhausted() {
		return fmt.Errorf("%w (requests %d/%d, tokens %d/%d)",
			ErrExhausted, b.requests, b.requestLimit, b.tokens, b.tokenLimit)
	}
	b.requests++
	return nil
}

// Charge records token consumption reported by a completed call.
func (b *Budget) Charge(tokens int) {
	if b == nil || tokens <= 0 {
		return
	}
	b.tokens += tokens
}

// Exhausted reports whether either axis has reached its limit.
func (b *Budget) Exhausted() bool {
	if b == nil {
		return false
	}
	if b.requestLimit > 0 && b.requests >= b.requestLimit {
		return true
	}
	if b.tokenLimit > 0 && b.tokens >= b.tokenLimit {
		return true
	}
	return false
}

// Snapshot returns the current consumption labeled with the given phase.
func (b *Budget) Snapshot(phase string) Snapshot {
	if b == nil {
		return Snapshot{Phase: phase}
	}
	return Snapshot{
		Phase:        phase,
		RequestLimit: b.requestLimit,
		TokenLimit:   b.tokenLimit,
		Requests:     b.requests,
		Tokens:       b.tokens,
		Exhausted:    b.Exhausted(),
	}
}
