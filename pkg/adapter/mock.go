package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/secdesk/pkg/artifact"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	responses       map[string]string
	defaultResponse string

	// Usage, when set, is attached to every response.
	Usage *Usage
	// Err, when set, is returned by every Generate call.
	Err error
	// Calls counts Generate invocations.
	Calls int
	// Prompts records every prompt seen, in order.
	Prompts []string
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
// Keys match when the prompt contains them as a substring.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Generate returns a deterministic response for the prompt.
func (a *MockAdapter) Generate(_ context.Context, model string, prompt string) (*Response, error) {
	a.Calls++
	a.Prompts = append(a.Prompts, prompt)

	if a.Err != nil {
		return nil, a.Err
	}
	if model == "" {
		model = "mock-1"
	}

	if response, ok := a.responses[prompt]; ok {
		return a.respond(response, model, prompt), nil
	}
	for key, response := range a.responses {
		if key != "" && strings.Contains(prompt, key) {
			return a.respond(response, model, prompt), nil
		}
	}

	content := fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
	return a.respond(content, model, prompt), nil
}

func (a *MockAdapter) respond(content, model, prompt string) *Response {
	return &Response{
		Artifact: artifact.New(content, a.Name(), model, prompt),
		Usage:    a.Usage,
	}
}
