package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zen-systems/secdesk/pkg/budget"
)

func TestEvidenceWriter(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, "run-123")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	run := RunRecord{
		ID:        "run-123",
		Timestamp: time.Now().UTC(),
		ThreadID:  "thread-1",
		Query:     "suspicious login from new country",
		Usage: []budget.Snapshot{
			budget.New(5, 2000).Snapshot("classification"),
		},
	}
	if err := writer.WriteRun(run); err != nil {
		t.Fatalf("write run: %v", err)
	}

	round := RoundRecord{
		Round:      1,
		Target:     "account_security",
		Confidence: 0.82,
		Summary:    "likely credential stuffing, recommend MFA reset",
		Concluded:  true,
	}
	if err := writer.WriteRound(round); err != nil {
		t.Fatalf("write round: %v", err)
	}

	if _, err := os.Stat(filepath.Join(writer.RunDir(), "run.json")); err != nil {
		t.Fatalf("missing run.json: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(writer.RunDir(), "rounds", "round-1.json"))
	if err != nil {
		t.Fatalf("missing round file: %v", err)
	}
	var got RoundRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("round file invalid: %v", err)
	}
	if got.Target != "account_security" || !got.Concluded {
		t.Fatalf("round record mismatch: %+v", got)
	}
}

func TestEvidenceWriterValidation(t *testing.T) {
	if _, err := NewWriter("", "run"); err == nil {
		t.Fatal("expected error for empty base dir")
	}
	if _, err := NewWriter(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty run ID")
	}
}
