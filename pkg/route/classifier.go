package route

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zen-systems/secdesk/pkg/adapter"
	"github.com/zen-systems/secdesk/pkg/budget"
	"github.com/zen-systems/secdesk/pkg/config"
)

// LLMClassifier asks a model to route the query. Every call is charged
// against the classification budget; once the budget is exhausted the
// classifier refuses to call out and returns budget.ErrExhausted.
type LLMClassifier struct {
	adapterImpl adapter.Adapter
	model       string
	cfg         *config.SpecialistsConfig
	budget      *budget.Budget
}

// NewLLMClassifier creates a classifier backed by the given adapter and model.
func NewLLMClassifier(adapterImpl adapter.Adapter, model string, cfg *config.SpecialistsConfig, b *budget.Budget) *LLMClassifier {
	return &LLMClassifier{
		adapterImpl: adapterImpl,
		model:       model,
		cfg:         cfg,
		budget:      b,
	}
}

// Classify sends the text to the routing model and parses its decision.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (Route, error) {
	if c.adapterImpl == nil {
		return Unknown(), fmt.Errorf("classifier has no adapter")
	}
	if err := c.budget.Reserve(); err != nil {
		return Unknown(), err
	}

	resp, err := c.adapterImpl.Generate(ctx, c.model, c.buildPrompt(text))
	if err != nil {
		return Unknown(), fmt.Errorf("classifier call failed: %w", err)
	}
	c.budget.Charge(resp.Tokens())

	parsed, err := parseRoute(resp.Text())
	if err != nil {
		return Unknown(), err
	}
	if !c.validTarget(parsed.Target) {
		return Unknown(), fmt.Errorf("classifier target %q not recognized", parsed.Target)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return Unknown(), fmt.Errorf("classifier confidence %v out of range", parsed.Confidence)
	}

	return parsed, nil
}

func (c *LLMClassifier) validTarget(target string) bool {
	if target == TargetUnknown {
		return true
	}
	if c.cfg == nil {
		return false
	}
	_, ok := c.cfg.Targets[target]
	return ok
}

func (c *LLMClassifier) buildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("You are a security query router. Choose the best target specialist.\n")
	sb.WriteString("Return ONLY JSON: {\"target\":\"...\",\"confidence\":0-1}.\n")
	sb.WriteString("If the query is vague, small talk, or fits no specialist, use target \"unknown\".\n\n")
	sb.WriteString("Targets:\n")

	for _, name := range c.targetNames() {
		target := c.cfg.Targets[name]
		sb.WriteString(fmt.Sprintf("- %s", name))
		if len(target.Triggers) > 0 {
			sb.WriteString(fmt.Sprintf(" (signals: %s)", strings.Join(target.Triggers, ", ")))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nQuery:\n")
	sb.WriteString(text)
	return sb.String()
}

func (c *LLMClassifier) targetNames() []string {
	if c.cfg == nil {
		return nil
	}
	names := make([]string, 0, len(c.cfg.Targets))
	for name := range c.cfg.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseRoute(content string) (Route, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var r Route
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return Unknown(), fmt.Errorf("classifier response invalid: %w", err)
	}
	if r.Target == "" {
		return Unknown(), fmt.Errorf("classifier response missing target")
	}
	return r, nil
}
