package conclude

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/zen-systems/secdesk/pkg/adapter"
	"github.com/zen-systems/secdesk/pkg/artifact"
	"github.com/zen-systems/secdesk/pkg/budget"
)

func summarizerMock(response string) *adapter.MockAdapter {
	// Every summary prompt carries the "Exchange:" header, so key on it to
	// get the scripted body back verbatim.
	return adapter.NewMockAdapterWithResponses(map[string]string{"Exchange:": response}, "")
}

func TestLLMDetector_ParsesSignal(t *testing.T) {
	mock := summarizerMock(`{"summary":"isolate host, rotate credentials","concluded":true}`)
	d := NewLLMDetector(mock, "mock-1", budget.New(3, 1000))

	sig := d.Detect(context.Background(), nil, "what now?", "isolate the host")

	if !sig.Concluded {
		t.Error("expected concluded signal")
	}
	if sig.Summary != "isolate host, rotate credentials" {
		t.Errorf("summary = %q", sig.Summary)
	}
	if mock.Calls != 1 {
		t.Errorf("adapter calls = %d", mock.Calls)
	}
}

func TestLLMDetector_ParsesFencedSignal(t *testing.T) {
	mock := summarizerMock("```json\n{\"summary\":\"done\",\"concluded\":true}\n```")
	d := NewLLMDetector(mock, "mock-1", budget.New(3, 1000))

	sig := d.Detect(context.Background(), nil, "q", "r")
	if !sig.Concluded || sig.Summary != "done" {
		t.Errorf("signal = %+v", sig)
	}
}

func TestLLMDetector_IncludesHistoryFirst(t *testing.T) {
	mock := summarizerMock(`{"summary":"s","concluded":false}`)
	d := NewLLMDetector(mock, "mock-1", budget.New(3, 1000))

	history := []string{"round one summary", "round two summary"}
	d.Detect(context.Background(), history, "question", "answer")

	if len(mock.Prompts) != 1 {
		t.Fatalf("adapter calls = %d", len(mock.Prompts))
	}
	for _, h := range history {
		if !strings.Contains(mock.Prompts[0], h) {
			t.Errorf("prompt missing history entry %q", h)
		}
	}
}

func TestLLMDetector_DropsHistoryWhenBudgetTight(t *testing.T) {
	// One request of budget: the full-history attempt consumes it, the
	// current-turn retry is refused, so the detector degrades locally.
	mock := summarizerMock("not json at all")
	d := NewLLMDetector(mock, "mock-1", budget.New(1, 0))

	sig := d.Detect(context.Background(), []string{"old"}, "q", "the response text")

	if sig.Concluded {
		t.Error("degraded signal must not conclude")
	}
	if !strings.Contains(sig.Summary, "the response text") {
		t.Errorf("degraded summary should carry an excerpt, got %q", sig.Summary)
	}
	if mock.Calls != 1 {
		t.Errorf("adapter calls = %d, want 1", mock.Calls)
	}
}

func TestLLMDetector_SecondTierSucceeds(t *testing.T) {
	// First call invalid, second call valid: the detector retries with the
	// current turn only and uses that answer.
	scripted := &scriptedAdapter{responses: []string{
		"garbage",
		`{"summary":"retried fine","concluded":true}`,
	}}
	d := NewLLMDetector(scripted, "mock-1", budget.New(3, 0))

	sig := d.Detect(context.Background(), []string{"old"}, "q", "r")

	if !sig.Concluded || sig.Summary != "retried fine" {
		t.Errorf("signal = %+v", sig)
	}
	if scripted.calls != 2 {
		t.Errorf("adapter calls = %d, want 2", scripted.calls)
	}
	if strings.Contains(scripted.prompts[1], "old") {
		t.Error("second tier should omit prior history")
	}
}

func TestLLMDetector_ExhaustedBudgetNeverCalls(t *testing.T) {
	mock := summarizerMock(`{"summary":"s","concluded":true}`)
	b := budget.New(1, 0)
	_ = b.Reserve() // spend the only request

	d := NewLLMDetector(mock, "mock-1", b)
	sig := d.Detect(context.Background(), nil, "q", "resp")

	if mock.Calls != 0 {
		t.Errorf("exhausted budget must not reach the adapter, calls = %d", mock.Calls)
	}
	if sig.Concluded {
		t.Error("degraded signal must not conclude")
	}
}

func TestLLMDetector_EmptySummaryPlaceholder(t *testing.T) {
	mock := summarizerMock(`{"summary":"  ","concluded":false}`)
	d := NewLLMDetector(mock, "mock-1", budget.New(3, 0))

	sig := d.Detect(context.Background(), nil, "q", "r")
	if sig.Summary != PlaceholderNoSummary {
		t.Errorf("summary = %q, want %q", sig.Summary, PlaceholderNoSummary)
	}
}

func TestLLMDetector_AdapterErrorDegrades(t *testing.T) {
	mock := adapter.NewMockAdapter()
	mock.Err = fmt.Errorf("provider down")
	d := NewLLMDetector(mock, "mock-1", budget.New(3, 0))

	sig := d.Detect(context.Background(), nil, "q", "some response")
	if sig.Concluded {
		t.Error("degraded signal must not conclude")
	}
	if !strings.HasPrefix(sig.Summary, "summarization unavailable") {
		t.Errorf("summary = %q", sig.Summary)
	}
}

func TestLLMDetector_ChargesTokens(t *testing.T) {
	mock := summarizerMock(`{"summary":"s","concluded":true}`)
	mock.Usage = &adapter.Usage{PromptTokens: 30, CompletionTokens: 10, TotalTokens: 40}
	b := budget.New(3, 40)

	d := NewLLMDetector(mock, "mock-1", b)
	d.Detect(context.Background(), nil, "q", "r")
	d.Detect(context.Background(), nil, "q", "r")

	// 40 tokens charged by the first call leaves the budget exhausted, so
	// the second detect degrades without reaching the adapter.
	if mock.Calls != 1 {
		t.Errorf("adapter calls = %d, want 1", mock.Calls)
	}
}

func TestDegraded_Bounds(t *testing.T) {
	long := strings.Repeat("x", 500)
	sig := Degraded(long)

	if len([]rune(sig.Summary)) > 160 {
		t.Errorf("degraded summary too long: %d runes", len([]rune(sig.Summary)))
	}
	if !strings.HasSuffix(sig.Summary, "...") {
		t.Errorf("truncated summary should end with ellipsis: %q", sig.Summary)
	}

	// Deterministic under repetition.
	for i := 0; i < 5; i++ {
		if again := Degraded(long); again != sig {
			t.Fatal("degradation should be deterministic")
		}
	}
}

func TestDegraded_NoResponse(t *testing.T) {
	sig := Degraded("   ")
	if !strings.Contains(sig.Summary, "no response") {
		t.Errorf("summary = %q", sig.Summary)
	}
	if sig.Concluded {
		t.Error("degraded signal must not conclude")
	}
}

// scriptedAdapter returns queued responses in order, repeating the last.
type scriptedAdapter struct {
	responses []string
	prompts   []string
	calls     int
}

func (s *scriptedAdapter) Name() string     { return "scripted" }
func (s *scriptedAdapter) Models() []string { return []string{"mock-1"} }

func (s *scriptedAdapter) Generate(_ context.Context, model, prompt string) (*adapter.Response, error) {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &adapter.Response{
		Artifact: artifact.New(s.responses[idx], s.Name(), model, prompt),
	}, nil
}
