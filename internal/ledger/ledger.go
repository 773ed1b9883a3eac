// internal/ledger/ledger.go
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

// Transition is one append-only state change record.
type Transition struct {
	TransactionID string                   `json:"transaction_id"`
	FromStatus    models.TransactionStatus `json:"from_status"`
	ToStatus      models.TransactionStatus `json:"to_status"`
	Metadata      map[string]string        `json:"metadata,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// Ledger is the append-only record of state transitions. The core calls
// it fire-and-forget; writes for the same transaction id must be applied
// in order.
type Ledger interface {
	Append(ctx context.Context, txID string, from, to models.TransactionStatus, metadata map[string]string) error
	History(ctx context.Context, txID string) ([]Transition, error)
}

// MemoryLedger keeps transitions in process. Used in tests and as a
// fallback when no database is configured.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string][]Transition
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string][]Transition)}
}

func (l *MemoryLedger) Append(_ context.Context, txID string, from, to models.TransactionStatus, metadata map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[txID] = append(l.entries[txID], Transition{
		TransactionID: txID,
		FromStatus:    from,
		ToStatus:      to,
		Metadata:      metadata,
		CreatedAt:     time.Now(),
	})
	return nil
}

func (l *MemoryLedger) History(_ context.Context, txID string) ([]Transition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	history := make([]Transition, len(l.entries[txID]))
	copy(history, l.entries[txID])
	return history, nil
}
