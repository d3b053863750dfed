package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zen-systems/secdesk/pkg/budget"
)

// RunRecord captures run-level metadata.
type RunRecord struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	ThreadID  string            `json:"thread_id,omitempty"`
	Query     string            `json:"query"`
	Usage     []budget.Snapshot `json:"usage,omitempty"`
}

// RoundRecord captures evidence for a single dialog round.
type RoundRecord struct {
	Round          int     `json:"round"`
	Target         string  `json:"target"`
	Confidence     float64 `json:"confidence"`
	Handoff        string  `json:"handoff,omitempty"`
	Response       string  `json:"response,omitempty"`
	Summary        string  `json:"summary,omitempty"`
	Concluded      bool    `json:"concluded"`
	Error          string  `json:"error,omitempty"`
	Fallback       bool    `json:"fallback,omitempty"`
	DurationMillis int64   `json:"duration_ms"`
}

// Writer writes run evidence to disk.
type Writer struct {
	baseDir string
	runDir  string
}

// NewWriter creates a new evidence writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(filepath.Join(runDir, "rounds"), 0755); err != nil {
		return nil, err
	}

	return &Writer{baseDir: baseDir, runDir: runDir}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// WriteRun writes run metadata to run.json.
func (w *Writer) WriteRun(record RunRecord) error {
	return writeJSON(filepath.Join(w.runDir, "run.json"), record)
}

// WriteRound writes a round record to rounds/round-<n>.json.
func (w *Writer) WriteRound(record RoundRecord) error {
	path := filepath.Join(w.runDir, "rounds", fmt.Sprintf("round-%d.json", record.Round))
	return writeJSON(path, record)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
