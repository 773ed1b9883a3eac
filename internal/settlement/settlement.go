// internal/settlement/settlement.go
// Instant settlement routing: given a completed transaction and a
// recipient descriptor, pick a channel and move the net amount.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

// Channel executes a settlement on one rail. Implementations must be
// idempotent under re-invocation with the same transaction id.
type Channel interface {
	Name() models.SettlementChannel
	Settle(ctx context.Context, tx *models.Transaction, recipient *models.RecipientDescriptor, amount decimal.Decimal) (string, error)
}

// Router selects and executes the settlement channel.
type Router struct {
	channels map[models.SettlementChannel]Channel
	logger   *zap.Logger
}

func NewRouter(logger *zap.Logger, channels ...Channel) *Router {
	m := make(map[models.SettlementChannel]Channel, len(channels))
	for _, c := range channels {
		m[c.Name()] = c
	}
	return &Router{channels: m, logger: logger}
}

// Route settles a COMPLETED transaction. Channel precedence: internal
// account reference, then explicit recipient type, then the channel
// implied by the original payment method, then BANK_TRANSFER.
func (r *Router) Route(ctx context.Context, tx *models.Transaction, recipient *models.RecipientDescriptor) (*models.SettlementRecord, error) {
	if tx.Settlement != nil && tx.Settlement.Status == models.SettlementStatusCompleted {
		// Retried settlement of an already-settled transaction.
		return tx.Settlement, nil
	}

	amount := tx.Request.Amount
	if tx.Fees != nil {
		amount = amount.Sub(tx.Fees.TotalFee)
	}

	channelName := r.selectChannel(tx, recipient)
	channel, ok := r.channels[channelName]
	if !ok {
		return nil, &models.SettlementError{Channel: channelName, Message: "no channel implementation registered"}
	}

	record := &models.SettlementRecord{
		Channel:  channelName,
		Amount:   amount,
		Currency: tx.Request.Currency,
		Status:   models.SettlementStatusPending,
	}

	reference, err := channel.Settle(ctx, tx, recipient, amount)
	if err != nil {
		record.Status = models.SettlementStatusFailed
		r.logger.Error("settlement channel failed",
			zap.String("transaction_id", tx.ID),
			zap.String("channel", string(channelName)),
			zap.Error(err))
		return record, &models.SettlementError{Channel: channelName, Message: err.Error()}
	}

	record.Status = models.SettlementStatusCompleted
	record.Reference = reference
	record.CompletedAt = time.Now()

	r.logger.Info("settlement completed",
		zap.String("transaction_id", tx.ID),
		zap.String("channel", string(channelName)),
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)))

	return record, nil
}

func (r *Router) selectChannel(tx *models.Transaction, recipient *models.RecipientDescriptor) models.SettlementChannel {
	if recipient != nil {
		if recipient.InternalAccountRef != "" {
			return models.ChannelInternalTransfer
		}
		switch recipient.Type {
		case models.RecipientBankAccount:
			return models.ChannelBankTransfer
		case models.RecipientMobileMoney:
			return models.ChannelMobileMoney
		case models.RecipientCryptoAddress:
			return models.ChannelCrypto
		}
	}

	switch tx.Request.Method {
	case models.MethodMobileMoney:
		return models.ChannelMobileMoney
	case models.MethodCrypto:
		return models.ChannelCrypto
	}
	return models.ChannelBankTransfer
}

// settlementReference derives the channel reference deterministically
// from the transaction id so that re-invocation is idempotent.
func settlementReference(prefix, txID string) string {
	return fmt.Sprintf("%s-%s", prefix, txID)
}
