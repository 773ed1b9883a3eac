package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

func TestMemoryLedgerAppendOrder(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	steps := []struct {
		from models.TransactionStatus
		to   models.TransactionStatus
	}{
		{"", models.StatusInitiated},
		{models.StatusInitiated, models.StatusRiskChecked},
		{models.StatusRiskChecked, models.StatusProviderDispatched},
		{models.StatusProviderDispatched, models.StatusCompleted},
	}
	for _, s := range steps {
		if err := l.Append(ctx, "tx-1", s.from, s.to, nil); err != nil {
			t.Fatal(err)
		}
	}

	history, err := l.History(ctx, "tx-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != len(steps) {
		t.Fatalf("history has %d entries, want %d", len(history), len(steps))
	}
	for i, s := range steps {
		if history[i].FromStatus != s.from || history[i].ToStatus != s.to {
			t.Errorf("entry %d = %s->%s, want %s->%s",
				i, history[i].FromStatus, history[i].ToStatus, s.from, s.to)
		}
	}
}

func TestMemoryLedgerIsolatesTransactions(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	l.Append(ctx, "tx-a", "", models.StatusInitiated, nil)
	l.Append(ctx, "tx-b", "", models.StatusInitiated, nil)
	l.Append(ctx, "tx-a", models.StatusInitiated, models.StatusRejected, map[string]string{"reason": "FRAUD_DETECTED"})

	a, _ := l.History(ctx, "tx-a")
	b, _ := l.History(ctx, "tx-b")

	if len(a) != 2 || len(b) != 1 {
		t.Errorf("history lengths = (%d, %d), want (2, 1)", len(a), len(b))
	}
	if a[1].Metadata["reason"] != "FRAUD_DETECTED" {
		t.Errorf("metadata = %v, want rejection reason", a[1].Metadata)
	}
}

func TestMemoryLedgerHistoryIsCopy(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	l.Append(ctx, "tx-1", "", models.StatusInitiated, nil)

	history, _ := l.History(ctx, "tx-1")
	history[0].ToStatus = models.StatusFailed

	fresh, _ := l.History(ctx, "tx-1")
	if fresh[0].ToStatus != models.StatusInitiated {
		t.Error("mutating a returned history must not affect stored entries")
	}
}

func TestMemoryLedgerUnknownTransaction(t *testing.T) {
	l := NewMemoryLedger()

	history, err := l.History(context.Background(), "no-such-tx")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history for unknown transaction has %d entries, want 0", len(history))
	}
}

func TestMemoryLedgerConcurrentAppends(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			txID := fmt.Sprintf("tx-%d", n%5)
			l.Append(ctx, txID, models.StatusPending, models.StatusCompleted, nil)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 5; i++ {
		history, _ := l.History(ctx, fmt.Sprintf("tx-%d", i))
		total += len(history)
	}
	if total != 50 {
		t.Errorf("recorded %d transitions across transactions, want 50", total)
	}
}
