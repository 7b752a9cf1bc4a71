package saga

import (
	"context"
	"sync"
	"time"
)

// Ledger records the event IDs a consuming service has already applied.
// An empty event ID is never processed and never recorded.
type Ledger interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed inserts the event ID if absent and returns
	// ErrAlreadyProcessed when it is already recorded.
	MarkProcessed(ctx context.Context, eventID string) error
}

// DetachedLedger is a Ledger whose writes commit on their own and cannot join
// the Transactor's unit of work. Listeners record events in such a ledger only
// after the unit of work has committed.
type DetachedLedger interface {
	Ledger
	Detached() bool
}

func isDetached(l Ledger) bool {
	d, ok := l.(DetachedLedger)
	return ok && d.Detached()
}

// MemoryLedger is a process-local Ledger used by tests and single-node runs.
type MemoryLedger struct {
	mu        sync.Mutex
	processed map[string]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		processed: make(map[string]time.Time),
	}
}

func (l *MemoryLedger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.processed[eventID]
	return ok, nil
}

func (l *MemoryLedger) MarkProcessed(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.processed[eventID]; ok {
		return ErrAlreadyProcessed
	}
	l.processed[eventID] = time.Now().UTC()
	return nil
}

// Len returns the number of recorded events.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.processed)
}
