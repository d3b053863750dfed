package specialist

import (
	"fmt"
	"sort"

	"github.com/zen-systems/secdesk/pkg/config"
)

// Registry maps target identifiers to specialist handlers. The general
// target is mandatory; it doubles as the fallback for unrecognized targets.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates a registry from the given handlers. It fails unless
// a handler for the general target is present.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Target()] = h
	}
	if _, ok := r.handlers[config.GeneralTarget]; !ok {
		return nil, fmt.Errorf("registry requires a %q handler", config.GeneralTarget)
	}
	return r, nil
}

// Resolve returns the handler for a target, substituting the general
// handler for anything unregistered.
func (r *Registry) Resolve(target string) Handler {
	if h, ok := r.handlers[target]; ok {
		return h
	}
	return r.handlers[config.GeneralTarget]
}

// Has reports whether a target is registered.
func (r *Registry) Has(target string) bool {
	_, ok := r.handlers[target]
	return ok
}

// Targets returns the sorted list of registered targets.
func (r *Registry) Targets() []string {
	targets := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		targets = append(targets, name)
	}
	sort.Strings(targets)
	return targets
}
