// internal/dispatcher/events.go
package dispatcher

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zoobzio/hookz"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

// Lifecycle event keys.
const (
	EventPaymentCompleted    hookz.Key = "payment.completed"
	EventPaymentFailed       hookz.Key = "payment.failed"
	EventPaymentRejected     hookz.Key = "payment.rejected"
	EventSettlementCompleted hookz.Key = "settlement.completed"
	EventSettlementFailed    hookz.Key = "settlement.failed"
)

// TransactionEvent is the payload fanned out to lifecycle hooks.
type TransactionEvent struct {
	TransactionID string
	Method        models.PaymentMethod
	Status        models.TransactionStatus
	Amount        decimal.Decimal
	Currency      string
	OccurredAt    time.Time
}

func eventFor(tx *models.Transaction) TransactionEvent {
	return TransactionEvent{
		TransactionID: tx.ID,
		Method:        tx.Request.Method,
		Status:        tx.Status,
		Amount:        tx.Request.Amount,
		Currency:      tx.Request.Currency,
		OccurredAt:    time.Now(),
	}
}
