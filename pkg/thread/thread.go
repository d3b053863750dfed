package thread

import (
	"context"
	"errors"
	"time"
)

// ErrThreadNotFound is returned when a thread ID is unknown to the store.
var ErrThreadNotFound = errors.New("thread not found")

// Roles used in transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation transcript.
type Message struct {
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is an append-only conversation transcript log. One thread is only
// ever driven by a single coordinator at a time; stores must still be safe
// for concurrent use across threads.
type Store interface {
	// Create opens a new thread and returns its ID.
	Create(ctx context.Context) (string, error)

	// Append adds a message to a thread's transcript.
	Append(ctx context.Context, threadID, role, content string) error

	// Messages returns a thread's transcript in insertion order.
	Messages(ctx context.Context, threadID string) ([]Message, error)
}
