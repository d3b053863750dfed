package specialist

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zen-systems/secdesk/pkg/adapter"
	"github.com/zen-systems/secdesk/pkg/config"
	"github.com/zen-systems/secdesk/pkg/knowledge"
)

const retrievalTopK = 3

// Dispatcher invokes specialist handlers and encodes every failure into
// the Result. It never returns an error to the caller.
type Dispatcher struct {
	registry  *Registry
	cfg       *config.SpecialistsConfig
	retriever knowledge.Retriever
	debug     bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRetriever enables knowledge enrichment before dispatch.
func WithRetriever(r knowledge.Retriever) DispatcherOption {
	return func(d *Dispatcher) {
		d.retriever = r
	}
}

// WithDispatcherDebug enables debug logging.
func WithDispatcherDebug(debug bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.debug = debug
	}
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, cfg *config.SpecialistsConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry, cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes the text to the target's handler. Unregistered targets
// fall back to the general handler. Handler errors are captured in the
// Result, and latency is recorded either way.
func (d *Dispatcher) Dispatch(ctx context.Context, target, text, threadID string) Result {
	handler := d.registry.Resolve(target)
	result := Result{Target: handler.Target()}

	enriched, sources := d.enrich(ctx, target, text)
	if len(sources) > 0 {
		result.KnowledgeUsed = true
		result.Sources = sources
	}

	start := time.Now()
	response, err := handler.Handle(ctx, enriched, threadID)
	result.Latency = time.Since(start)

	if err != nil {
		result.Err = err.Error()
		result.Transient = adapter.IsTransient(err)
		return result
	}
	result.Response = response
	return result
}

// enrich prepends relevant knowledge base excerpts to the text. Retrieval
// failures are logged and treated as no enrichment available.
func (d *Dispatcher) enrich(ctx context.Context, target, text string) (string, []string) {
	if d.retriever == nil {
		return text, nil
	}

	docs, err := d.retriever.Search(ctx, text, d.categoriesFor(target), retrievalTopK)
	if err != nil {
		if d.debug {
			log.Printf("[dispatcher] knowledge search failed for %s: %v", target, err)
		}
		return text, nil
	}
	if len(docs) == 0 {
		return text, nil
	}

	var sb strings.Builder
	sb.WriteString("[knowledge base references]\n")
	sources := make([]string, 0, len(docs))
	for _, doc := range docs {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", doc.Title, excerpt(doc.Content, 200)))
		sources = append(sources, doc.Title)
	}
	sb.WriteString("\n[user query]\n")
	sb.WriteString(text)

	if d.debug {
		log.Printf("[dispatcher] found %d documents for %s", len(docs), target)
	}
	return sb.String(), sources
}

func (d *Dispatcher) categoriesFor(target string) []string {
	if d.cfg == nil {
		return nil
	}
	return d.cfg.Targets[target].Categories
}

func excerpt(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	return content[:limit] + "..."
}
