package route

import (
	"context"
	"sort"
	"strings"

	"github.com/zen-systems/secdesk/pkg/config"
)

// Candidate captures one scored target during rule classification.
type Candidate struct {
	Target   string   `json:"target"`
	Score    int      `json:"score"`
	Triggers []string `json:"triggers,omitempty"`
}

// RuleClassifier scores targets by trigger keyword matches. It needs no
// network access and is the deterministic alternative to the LLM classifier.
type RuleClassifier struct {
	cfg *config.SpecialistsConfig
}

// NewRuleClassifier creates a rule classifier over the configured targets.
func NewRuleClassifier(cfg *config.SpecialistsConfig) *RuleClassifier {
	return &RuleClassifier{cfg: cfg}
}

// Classify scores every target's triggers against the text and derives a
// confidence from the winning margin. No trigger match yields the unknown
// route.
func (c *RuleClassifier) Classify(_ context.Context, text string) (Route, error) {
	if c.cfg == nil {
		return Unknown(), nil
	}
	textLower := strings.ToLower(text)

	var candidates []Candidate
	for name, target := range c.cfg.Targets {
		var matched []string
		for _, trig := range target.Triggers {
			if containsTrigger(textLower, strings.ToLower(trig)) {
				matched = append(matched, trig)
			}
		}
		if len(matched) == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Target:   name,
			Score:    len(matched),
			Triggers: matched,
		})
	}

	if len(candidates) == 0 {
		return Unknown(), nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].Target < candidates[j].Target
		}
		return candidates[i].Score > candidates[j].Score
	})

	topScore := candidates[0].Score
	secondScore := 0
	if len(candidates) > 1 {
		secondScore = candidates[1].Score
	}

	margin := float64(topScore-secondScore) / float64(maxInt(topScore, 1))
	strength := float64(minInt(topScore, 5)) / 5.0
	confidence := 0.75*margin + 0.25*strength
	if topScore >= 2 && secondScore == 0 {
		confidence = maxFloat(confidence, 0.9)
	}
	if topScore >= 3 {
		confidence = minFloat(confidence+0.15, 1.0)
	}

	return Route{Target: candidates[0].Target, Confidence: confidence}, nil
}

// containsTrigger checks if the text contains the trigger phrase.
// It looks for the trigger as a word or phrase boundary match.
func containsTrigger(text, trigger string) bool {
	idx := strings.Index(text, trigger)
	if idx == -1 {
		return false
	}

	// Check word boundary before trigger
	if idx > 0 {
		prev := text[idx-1]
		if isWordChar(prev) {
			return false
		}
	}

	// Check word boundary after trigger
	endIdx := idx + len(trigger)
	if endIdx < len(text) {
		next := text[endIdx]
		if isWordChar(next) {
			return false
		}
	}

	return true
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
