package conclude

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/zen-systems/secdesk/pkg/adapter"
	"github.com/zen-systems/secdesk/pkg/budget"
)

// LLMDetector summarizes the running exchange with a model, under the
// summarization phase's budget. Degradation order: full history with the
// current exchange, then the current exchange alone, then a locally
// synthesized signal. The last tier cannot fail.
type LLMDetector struct {
	adapterImpl adapter.Adapter
	model       string
	budget      *budget.Budget
	debug       bool
}

// DetectorOption configures an LLMDetector.
type DetectorOption func(*LLMDetector)

// WithDetectorDebug enables debug logging.
func WithDetectorDebug(debug bool) DetectorOption {
	return func(d *LLMDetector) {
		d.debug = debug
	}
}

// NewLLMDetector creates a detector backed by the given adapter and model.
func NewLLMDetector(adapterImpl adapter.Adapter, model string, b *budget.Budget, opts ...DetectorOption) *LLMDetector {
	d := &LLMDetector{adapterImpl: adapterImpl, model: model, budget: b}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect summarizes the exchange and reports whether it concluded.
func (d *LLMDetector) Detect(ctx context.Context, history []string, userText, response string) Signal {
	current := fmt.Sprintf("User: %s\nAssistant: %s", userText, response)
	full := current
	if len(history) > 0 {
		full = strings.Join(history, "\n") + "\n" + current
	}

	sig, err := d.summarize(ctx, full)
	if err == nil {
		return sig
	}
	if d.debug {
		log.Printf("[conclude] full-history summarization failed: %v", err)
	}

	sig, err = d.summarize(ctx, current)
	if err == nil {
		return sig
	}
	if d.debug {
		log.Printf("[conclude] current-turn summarization failed: %v", err)
	}

	return Degraded(response)
}

func (d *LLMDetector) summarize(ctx context.Context, text string) (Signal, error) {
	if d.adapterImpl == nil {
		return Signal{}, fmt.Errorf("detector has no adapter")
	}
	if err := d.budget.Reserve(); err != nil {
		return Signal{}, err
	}

	resp, err := d.adapterImpl.Generate(ctx, d.model, buildSummaryPrompt(text))
	if err != nil {
		return Signal{}, fmt.Errorf("summarizer call failed: %w", err)
	}
	d.budget.Charge(resp.Tokens())

	sig, err := parseSignal(resp.Text())
	if err != nil {
		return Signal{}, err
	}
	if strings.TrimSpace(sig.Summary) == "" {
		sig.Summary = PlaceholderNoSummary
	}
	return sig, nil
}

func buildSummaryPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("You summarize a security analysis exchange.\n")
	sb.WriteString("Return ONLY JSON: {\"summary\":\"at most 120 characters\",\"concluded\":true|false}.\n")
	sb.WriteString("Set concluded=true only when the exchange contains a clear conclusion or actionable recommendation.\n\n")
	sb.WriteString("Exchange:\n")
	sb.WriteString(text)
	return sb.String()
}

func parseSignal(content string) (Signal, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var sig Signal
	if err := json.Unmarshal([]byte(content), &sig); err != nil {
		return Signal{}, fmt.Errorf("summarizer response invalid: %w", err)
	}
	return sig, nil
}
