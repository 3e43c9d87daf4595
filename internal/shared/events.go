package shared

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds emitted by the engine. Receipt, disposition and issue events
// carry enough payload to rebuild the stock ledger by replay.
const (
	EventPRCreated   = "pr.created"
	EventPRApproved  = "pr.approved"
	EventPRRejected  = "pr.rejected"
	EventPOCreated   = "po.created"
	EventPOApproved  = "po.approved"
	EventPORejected  = "po.rejected"
	EventGRPosted    = "gr.posted"
	EventQADisposed  = "qa.disposed"
	EventStockIssued = "stock.issued"
)

// Event is an immutable record of a committed engine command.
type Event struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Recorder appends events and exposes them in emission order.
type Recorder interface {
	Record(ctx context.Context, evt Event) error
	List(ctx context.Context) ([]Event, error)
}

// MemoryLog is an append-only in-memory event log.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryLog constructs an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Record appends the event, assigning id and timestamp when absent.
func (l *MemoryLog) Record(ctx context.Context, evt Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	l.events = append(l.events, evt)
	return nil
}

// List returns a copy of all events in emission order.
func (l *MemoryLog) List(ctx context.Context) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out, nil
}
