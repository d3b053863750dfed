package orchestrate

// historyLimit caps the rolling summary window. Older entries are evicted
// first-in first-out so long dialogs keep a bounded prompt size.
const historyLimit = 20

// ConversationState carries everything a dialog accumulates between
// rounds: the transcript thread, the rolling summary window, and the
// round counter. It is a plain value holder; the coordinator owns all
// transitions.
type ConversationState struct {
	ThreadID string
	History  []string
	Round    int
}

// remember appends a round summary, evicting the oldest entry once the
// window is full.
func (s *ConversationState) remember(summary string) {
	if summary == "" {
		return
	}
	s.History = append(s.History, summary)
	if len(s.History) > historyLimit {
		s.History = s.History[len(s.History)-historyLimit:]
	}
}
