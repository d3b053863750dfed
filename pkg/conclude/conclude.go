package conclude

import (
	"context"
	"strings"
)

// PlaceholderNoSummary substitutes an empty or missing detector summary.
const PlaceholderNoSummary = "no summary needed"

// degradedPrefix marks a locally synthesized signal.
const degradedPrefix = "summarization unavailable; excerpt: "

// noResponsePlaceholder stands in when the specialist produced no text.
const noResponsePlaceholder = "no response"

// summaryRuneLimit bounds the semantic content of a summary.
const summaryRuneLimit = 120

// Signal is the conclusion detector's verdict on one exchange.
type Signal struct {
	Summary   string `json:"summary"`
	Concluded bool   `json:"concluded"`
}

// Detector decides whether the conversation has reached a usable answer.
// Implementations must not fail: every degradation path yields a Signal.
type Detector interface {
	Detect(ctx context.Context, history []string, userText, response string) Signal
}

// Degraded synthesizes the terminal fallback signal from a literal excerpt
// of the specialist response. It never concludes.
func Degraded(response string) Signal {
	text := strings.TrimSpace(response)
	if text == "" {
		text = noResponsePlaceholder
	}
	return Signal{
		Summary:   degradedPrefix + truncate(text, summaryRuneLimit),
		Concluded: false,
	}
}

// truncate bounds text to limit runes, marking the cut with an ellipsis.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
