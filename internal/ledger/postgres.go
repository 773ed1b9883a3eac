// internal/ledger/postgres.go
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

// PostgresLedger persists transitions to the transaction_transitions
// table. A per-transaction-id mutex serializes writes so that no two
// transitions for the same id are applied out of order.
type PostgresLedger struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *PostgresLedger) lockFor(txID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[txID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[txID] = lock
	}
	return lock
}

// releaseLock drops the per-id mutex once a transaction is terminal so the
// map does not grow unboundedly.
func (l *PostgresLedger) releaseLock(txID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, txID)
}

func (l *PostgresLedger) Append(ctx context.Context, txID string, from, to models.TransactionStatus, metadata map[string]string) error {
	lock := l.lockFor(txID)
	lock.Lock()
	defer lock.Unlock()

	var meta []byte
	if metadata != nil {
		meta, _ = json.Marshal(metadata)
	}

	query := `
		INSERT INTO transaction_transitions (id, transaction_id, from_status, to_status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := l.db.ExecContext(ctx, query,
		uuid.New().String(),
		txID,
		string(from),
		string(to),
		meta,
		time.Now(),
	)

	if err == nil && to.Terminal() {
		l.releaseLock(txID)
	}
	return err
}

func (l *PostgresLedger) History(ctx context.Context, txID string) ([]Transition, error) {
	query := `
		SELECT transaction_id, from_status, to_status, metadata, created_at
		FROM transaction_transitions
		WHERE transaction_id = $1
		ORDER BY created_at ASC
	`
	rows, err := l.db.QueryContext(ctx, query, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Transition
	for rows.Next() {
		var t Transition
		var meta []byte
		if err := rows.Scan(&t.TransactionID, &t.FromStatus, &t.ToStatus, &meta, &t.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			json.Unmarshal(meta, &t.Metadata)
		}
		history = append(history, t)
	}
	return history, rows.Err()
}
