package specialist

import (
	"context"
	"fmt"
	"log"

	"github.com/zen-systems/secdesk/pkg/adapter"
	"github.com/zen-systems/secdesk/pkg/thread"
)

// AdapterHandler answers for one specialist target through an LLM adapter.
type AdapterHandler struct {
	target       string
	adapterImpl  adapter.Adapter
	model        string
	instructions string
	threads      thread.Store
	debug        bool
}

// HandlerOption configures an AdapterHandler.
type HandlerOption func(*AdapterHandler)

// WithThreadStore makes the handler record its exchange on the
// conversation transcript.
func WithThreadStore(store thread.Store) HandlerOption {
	return func(h *AdapterHandler) {
		h.threads = store
	}
}

// WithHandlerDebug enables debug logging.
func WithHandlerDebug(debug bool) HandlerOption {
	return func(h *AdapterHandler) {
		h.debug = debug
	}
}

// NewAdapterHandler creates a specialist handler for the given target.
func NewAdapterHandler(target string, adapterImpl adapter.Adapter, model, instructions string, opts ...HandlerOption) *AdapterHandler {
	h := &AdapterHandler{
		target:       target,
		adapterImpl:  adapterImpl,
		model:        model,
		instructions: instructions,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Target returns the specialist's registry identifier.
func (h *AdapterHandler) Target() string {
	return h.target
}

// Handle sends the text to the specialist's model and returns the reply.
// Transcript writes are best-effort; a failed append never fails the call.
func (h *AdapterHandler) Handle(ctx context.Context, text, threadID string) (string, error) {
	if h.adapterImpl == nil {
		return "", fmt.Errorf("specialist %s has no adapter", h.target)
	}

	h.appendToThread(ctx, threadID, thread.RoleUser, text)

	prompt := text
	if h.instructions != "" {
		prompt = h.instructions + "\n\n" + text
	}

	resp, err := h.adapterImpl.Generate(ctx, h.model, prompt)
	if err != nil {
		return "", fmt.Errorf("specialist %s: %w", h.target, err)
	}

	reply := resp.Text()
	if reply == "" {
		reply = "(empty response)"
	}

	h.appendToThread(ctx, threadID, thread.RoleAssistant, reply)
	return reply, nil
}

func (h *AdapterHandler) appendToThread(ctx context.Context, threadID, role, content string) {
	if h.threads == nil || threadID == "" {
		return
	}
	if err := h.threads.Append(ctx, threadID, role, content); err != nil && h.debug {
		log.Printf("[specialist] thread append failed for %s: %v", h.target, err)
	}
}
