package route

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/zen-systems/secdesk/pkg/adapter"
	"github.com/zen-systems/secdesk/pkg/budget"
	"github.com/zen-systems/secdesk/pkg/config"
)

func routerMock(response string) *adapter.MockAdapter {
	// Every routing prompt carries the "Query:" header, so key on it to get
	// the scripted body back verbatim.
	return adapter.NewMockAdapterWithResponses(map[string]string{"Query:": response}, "")
}

func TestLLMClassifier_ParsesDecision(t *testing.T) {
	cfg := config.DefaultSpecialistsConfig()

	tests := []struct {
		name           string
		response       string
		expectedTarget string
		expectedConf   float64
	}{
		{
			name:           "plain json",
			response:       `{"target":"threat_analysis","confidence":0.92}`,
			expectedTarget: "threat_analysis",
			expectedConf:   0.92,
		},
		{
			name:           "fenced json",
			response:       "```json\n{\"target\":\"network_security\",\"confidence\":0.7}\n```",
			expectedTarget: "network_security",
			expectedConf:   0.7,
		},
		{
			name:           "unknown is a valid answer",
			response:       `{"target":"unknown","confidence":0.1}`,
			expectedTarget: TargetUnknown,
			expectedConf:   0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := routerMock(tt.response)
			c := NewLLMClassifier(mock, "mock-1", cfg, budget.New(5, 2000))

			r, err := c.Classify(context.Background(), "some query")
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if r.Target != tt.expectedTarget {
				t.Errorf("target = %q, want %q", r.Target, tt.expectedTarget)
			}
			if r.Confidence != tt.expectedConf {
				t.Errorf("confidence = %v, want %v", r.Confidence, tt.expectedConf)
			}
		})
	}
}

func TestLLMClassifier_RejectsBadDecisions(t *testing.T) {
	cfg := config.DefaultSpecialistsConfig()

	tests := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "I think this is about threats"},
		{name: "missing target", response: `{"confidence":0.9}`},
		{name: "unregistered target", response: `{"target":"crypto_forensics","confidence":0.9}`},
		{name: "confidence above one", response: `{"target":"threat_analysis","confidence":1.5}`},
		{name: "negative confidence", response: `{"target":"threat_analysis","confidence":-0.1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := routerMock(tt.response)
			c := NewLLMClassifier(mock, "mock-1", cfg, budget.New(5, 2000))

			r, err := c.Classify(context.Background(), "some query")
			if err == nil {
				t.Fatal("expected error")
			}
			if r.Target != TargetUnknown || r.Confidence != 0 {
				t.Errorf("degraded route = %+v, want unknown/0", r)
			}
		})
	}
}

func TestLLMClassifier_BudgetStopsCalls(t *testing.T) {
	cfg := config.DefaultSpecialistsConfig()
	mock := routerMock(`{"target":"threat_analysis","confidence":0.9}`)
	c := NewLLMClassifier(mock, "mock-1", cfg, budget.New(1, 0))

	if _, err := c.Classify(context.Background(), "first"); err != nil {
		t.Fatalf("first classify should succeed: %v", err)
	}

	r, err := c.Classify(context.Background(), "second")
	if !errors.Is(err, budget.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if r.Target != TargetUnknown {
		t.Errorf("degraded target = %q", r.Target)
	}
	if mock.Calls != 1 {
		t.Errorf("exhausted budget must not reach the adapter, calls = %d", mock.Calls)
	}
}

func TestLLMClassifier_TokenBudgetCharged(t *testing.T) {
	cfg := config.DefaultSpecialistsConfig()
	mock := routerMock(`{"target":"threat_analysis","confidence":0.9}`)
	mock.Usage = &adapter.Usage{PromptTokens: 900, CompletionTokens: 100, TotalTokens: 1000}

	b := budget.New(5, 1000)
	c := NewLLMClassifier(mock, "mock-1", cfg, b)

	if _, err := c.Classify(context.Background(), "first"); err != nil {
		t.Fatalf("first classify: %v", err)
	}
	if !b.Exhausted() {
		t.Fatal("token budget should be exhausted after first call")
	}
	if _, err := c.Classify(context.Background(), "second"); !errors.Is(err, budget.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestLLMClassifier_AdapterErrorDegrades(t *testing.T) {
	cfg := config.DefaultSpecialistsConfig()
	mock := adapter.NewMockAdapter()
	mock.Err = fmt.Errorf("upstream unavailable")

	c := NewLLMClassifier(mock, "mock-1", cfg, budget.New(5, 2000))
	r, err := c.Classify(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error from failing adapter")
	}
	if r.Target != TargetUnknown || r.Confidence != 0 {
		t.Errorf("degraded route = %+v", r)
	}
}
