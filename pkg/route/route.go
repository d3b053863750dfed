package route

import (
	"context"

	"github.com/zen-systems/secdesk/pkg/config"
)

// TargetUnknown is the classifier's "no idea" answer. It is never
// dispatched; normalization resolves it to the general target.
const TargetUnknown = "unknown"

// Route is the classifier's decision for one round.
type Route struct {
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps free-form query text to a Route.
type Classifier interface {
	Classify(ctx context.Context, text string) (Route, error)
}

// Unknown returns the degraded route used when classification fails.
func Unknown() Route {
	return Route{Target: TargetUnknown, Confidence: 0}
}

// Normalize resolves a raw route to a dispatchable target. Low-confidence
// guesses and unknown targets both land on the general specialist, so every
// round dispatches to a recognized handler.
func Normalize(r Route, threshold float64) string {
	tgt := r.Target
	if r.Confidence < threshold && tgt != config.GeneralTarget {
		tgt = config.GeneralTarget
	}
	if tgt == TargetUnknown {
		tgt = config.GeneralTarget
	}
	return tgt
}
