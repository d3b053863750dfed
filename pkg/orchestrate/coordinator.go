package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zen-systems/secdesk/pkg/budget"
	"github.com/zen-systems/secdesk/pkg/conclude"
	"github.com/zen-systems/secdesk/pkg/config"
	"github.com/zen-systems/secdesk/pkg/evidence"
	"github.com/zen-systems/secdesk/pkg/route"
	"github.com/zen-systems/secdesk/pkg/specialist"
	"github.com/zen-systems/secdesk/pkg/thread"
)

// retryMarker is prepended to the query text when a round's specialist
// call failed, so the next classification sees the retry context.
const retryMarker = "[RETRY]\n"

// summaryPrefix tags summary entries in the transcript thread.
const summaryPrefix = "[summary]\n"

// Dispatcher hands one round's query to a specialist. It does not fail;
// delivery problems surface inside the Result.
type Dispatcher interface {
	Dispatch(ctx context.Context, target, text, threadID string) specialist.Result
}

// ClassifierFactory builds a classifier bound to one run's budget.
type ClassifierFactory func(b *budget.Budget) route.Classifier

// DetectorFactory builds a conclusion detector bound to one run's budget.
type DetectorFactory func(b *budget.Budget) conclude.Detector

// Output is the terminal record of one query run. It is always produced;
// a failed run reports its failure through Result.Err rather than an error
// return.
type Output struct {
	Route    route.Route       `json:"route"`
	Result   specialist.Result `json:"result"`
	Summary  string            `json:"summary,omitempty"`
	Steps    []string          `json:"steps"`
	ThreadID string            `json:"thread_id,omitempty"`
	Usage    []budget.Snapshot `json:"usage"`
}

// Coordinator drives the multi-round dialog loop: classify, dispatch,
// detect a conclusion, and either stop, retry, or fall back to the
// general specialist.
type Coordinator struct {
	cfg           *config.SpecialistsConfig
	dispatcher    Dispatcher
	newClassifier ClassifierFactory
	newDetector   DetectorFactory
	threads       thread.Store
	evidenceDir   string
	debug         bool
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithThreadStore sets the transcript store used for dialog threads.
func WithThreadStore(store thread.Store) CoordinatorOption {
	return func(c *Coordinator) {
		c.threads = store
	}
}

// WithEvidenceDir enables per-run evidence records under the given
// directory. Evidence writes are best effort and never fail a run.
func WithEvidenceDir(dir string) CoordinatorOption {
	return func(c *Coordinator) {
		c.evidenceDir = dir
	}
}

// WithCoordinatorDebug enables debug logging.
func WithCoordinatorDebug(debug bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.debug = debug
	}
}

// NewCoordinator creates a coordinator over the given specialist
// configuration and collaborators.
func NewCoordinator(cfg *config.SpecialistsConfig, dispatcher Dispatcher, newClassifier ClassifierFactory, newDetector DetectorFactory, opts ...CoordinatorOption) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("specialists configuration is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if newClassifier == nil {
		return nil, fmt.Errorf("classifier factory is required")
	}
	if newDetector == nil {
		return nil, fmt.Errorf("detector factory is required")
	}

	c := &Coordinator{
		cfg:           cfg,
		dispatcher:    dispatcher,
		newClassifier: newClassifier,
		newDetector:   newDetector,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartDialog opens a fresh conversation state backed by a new thread.
func (c *Coordinator) StartDialog(ctx context.Context) (*ConversationState, error) {
	state := &ConversationState{}
	if c.threads == nil {
		state.ThreadID = uuid.NewString()
		return state, nil
	}
	id, err := c.threads.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	state.ThreadID = id
	return state, nil
}

// Run answers a single query on a fresh dialog.
func (c *Coordinator) Run(ctx context.Context, text string) *Output {
	state, err := c.StartDialog(ctx)
	if err != nil {
		if c.debug {
			log.Printf("[orchestrate] start dialog failed, running threadless: %v", err)
		}
		state = &ConversationState{}
	}
	return c.Continue(ctx, state, text)
}

// Continue answers the next query on an existing dialog, reusing its
// thread and summary history.
func (c *Coordinator) Continue(ctx context.Context, state *ConversationState, text string) *Output {
	if state == nil {
		state = &ConversationState{}
	}

	classBudget := budget.New(c.cfg.Classifier.RequestLimit, c.cfg.Classifier.TokenLimit)
	sumBudget := budget.New(c.cfg.Summarizer.RequestLimit, c.cfg.Summarizer.TokenLimit)
	classifier := c.newClassifier(classBudget)
	detector := c.newDetector(sumBudget)

	rec := c.newRecorder(state.ThreadID, text)
	out := &Output{ThreadID: state.ThreadID}
	cur := text

	for round := 1; round <= c.cfg.MaxRounds; round++ {
		state.Round = round
		started := time.Now()
		out.Steps = append(out.Steps, fmt.Sprintf("Round %d: route", round))

		r, err := classifier.Classify(ctx, cur)
		if err != nil {
			r = route.Unknown()
			out.Steps = append(out.Steps, fmt.Sprintf("  classification degraded: %v", err))
		}
		target := route.Normalize(r, c.cfg.ConfidenceThreshold)
		out.Route = r
		out.Steps = append(out.Steps, fmt.Sprintf("  -> %s (%.2f)", r.Target, r.Confidence))
		out.Steps = append(out.Steps, fmt.Sprintf("  handoff -> %s", target))

		res := c.dispatcher.Dispatch(ctx, target, cur, state.ThreadID)
		out.Result = res

		sig := detector.Detect(ctx, state.History, cur, res.Response)
		out.Summary = sig.Summary
		state.remember(sig.Summary)
		c.persistSummary(ctx, state.ThreadID, sig.Summary)
		out.Steps = append(out.Steps, fmt.Sprintf("  summarized: concluded=%v", sig.Concluded))

		rec.round(evidence.RoundRecord{
			Round:          round,
			Target:         r.Target,
			Confidence:     r.Confidence,
			Handoff:        target,
			Response:       res.Response,
			Summary:        sig.Summary,
			Concluded:      sig.Concluded,
			Error:          res.Err,
			DurationMillis: time.Since(started).Milliseconds(),
		})

		if res.OK() && sig.Concluded {
			out.Steps = append(out.Steps, "  concluded=true -> stop")
			c.finish(out, rec, classBudget, sumBudget)
			return out
		}
		if res.OK() {
			out.Steps = append(out.Steps, "  ok but not concluded -> maybe next round")
			continue
		}
		out.Steps = append(out.Steps, "  error -> retry")
		cur = retryMarker + cur
	}

	// Every round either erred or failed to conclude; the general
	// specialist gets the final word unconditionally.
	started := time.Now()
	out.Steps = append(out.Steps, "Fallback: "+config.GeneralTarget)
	out.Route = route.Route{Target: config.GeneralTarget, Confidence: 1.0}

	res := c.dispatcher.Dispatch(ctx, config.GeneralTarget, cur, state.ThreadID)
	out.Result = res

	sig := detector.Detect(ctx, state.History, cur, res.Response)
	out.Summary = sig.Summary
	state.remember(sig.Summary)
	c.persistSummary(ctx, state.ThreadID, sig.Summary)
	out.Steps = append(out.Steps, "  finalized with fallback")

	rec.round(evidence.RoundRecord{
		Round:          c.cfg.MaxRounds + 1,
		Target:         config.GeneralTarget,
		Confidence:     1.0,
		Response:       res.Response,
		Summary:        sig.Summary,
		Concluded:      sig.Concluded,
		Error:          res.Err,
		Fallback:       true,
		DurationMillis: time.Since(started).Milliseconds(),
	})

	c.finish(out, rec, classBudget, sumBudget)
	return out
}

// finish serializes the phase budgets onto the output. Inner phases never
// see serialized usage; it exists only on this boundary.
func (c *Coordinator) finish(out *Output, rec *recorder, classBudget, sumBudget *budget.Budget) {
	out.Usage = []budget.Snapshot{
		classBudget.Snapshot("classification"),
		sumBudget.Snapshot("summarization"),
	}
	if data, err := json.Marshal(out.Usage); err == nil {
		out.Steps = append(out.Steps, "USAGE_SUMMARY="+string(data))
	}
	rec.finish(out.Usage)
}

func (c *Coordinator) persistSummary(ctx context.Context, threadID, summary string) {
	if c.threads == nil || threadID == "" || summary == "" {
		return
	}
	if err := c.threads.Append(ctx, threadID, thread.RoleAssistant, summaryPrefix+summary); err != nil && c.debug {
		log.Printf("[orchestrate] persist summary: %v", err)
	}
}

// recorder writes best-effort evidence for one run. A nil writer makes
// every method a no-op.
type recorder struct {
	writer   *evidence.Writer
	runID    string
	threadID string
	query    string
	debug    bool
}

func (c *Coordinator) newRecorder(threadID, query string) *recorder {
	rec := &recorder{threadID: threadID, query: query, debug: c.debug}
	if c.evidenceDir == "" {
		return rec
	}
	rec.runID = uuid.NewString()
	writer, err := evidence.NewWriter(c.evidenceDir, rec.runID)
	if err != nil {
		if c.debug {
			log.Printf("[orchestrate] evidence disabled: %v", err)
		}
		return rec
	}
	rec.writer = writer
	return rec
}

func (r *recorder) round(record evidence.RoundRecord) {
	if r.writer == nil {
		return
	}
	if err := r.writer.WriteRound(record); err != nil && r.debug {
		log.Printf("[orchestrate] write round evidence: %v", err)
	}
}

func (r *recorder) finish(usage []budget.Snapshot) {
	if r.writer == nil {
		return
	}
	record := evidence.RunRecord{
		ID:        r.runID,
		Timestamp: time.Now().UTC(),
		ThreadID:  r.threadID,
		Query:     r.query,
		Usage:     usage,
	}
	if err := r.writer.WriteRun(record); err != nil && r.debug {
		log.Printf("[orchestrate] write run evidence: %v", err)
	}
}
