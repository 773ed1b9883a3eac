// internal/provider/card.go
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

const cardCallTimeout = 8 * time.Second

// CardAdapter drives the card/PSP rail through Stripe payment intents.
// Step-up authentication (3DS) is a third terminal outcome for the call,
// distinct from success and failure.
type CardAdapter struct {
	logger *zap.Logger
}

func NewCardAdapter(apiKey string, logger *zap.Logger) *CardAdapter {
	stripe.Key = apiKey
	return &CardAdapter{logger: logger}
}

func (a *CardAdapter) Rail() string { return "CARD" }

func (a *CardAdapter) Execute(ctx context.Context, tx *models.Transaction) *models.ProviderResult {
	callCtx, cancel := context.WithTimeout(ctx, cardCallTimeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: callCtx},
		Amount:   stripe.Int64(tx.Request.Amount.Mul(centFactor).IntPart()),
		Currency: stripe.String(tx.Request.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
	}
	if tx.Request.CustomerRef != "" {
		params.Description = stripe.String("customer " + tx.Request.CustomerRef)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return a.mapError(ctx, err)
	}
	return a.mapIntent(intent)
}

// Confirm resumes a PENDING_3DS transaction after the customer completed
// the step-up challenge.
func (a *CardAdapter) Confirm(ctx context.Context, tx *models.Transaction) *models.ProviderResult {
	if tx.Provider == nil || tx.Provider.Reference == "" {
		return failure("MISSING_INTENT", "no payment intent to confirm", false)
	}

	callCtx, cancel := context.WithTimeout(ctx, cardCallTimeout)
	defer cancel()

	intent, err := paymentintent.Confirm(tx.Provider.Reference, &stripe.PaymentIntentConfirmParams{
		Params: stripe.Params{Context: callCtx},
	})
	if err != nil {
		return a.mapError(ctx, err)
	}
	return a.mapIntent(intent)
}

func (a *CardAdapter) MapCallback(payload []byte) (models.TransactionStatus, string, error) {
	var event struct {
		IntentID string `json:"intent_id"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return models.StatusPending, "", err
	}
	return a.mapIntentStatus(stripe.PaymentIntentStatus(event.Status)), event.IntentID, nil
}

func (a *CardAdapter) mapIntent(intent *stripe.PaymentIntent) *models.ProviderResult {
	if intent.Status == stripe.PaymentIntentStatusRequiresAction {
		result := &models.ProviderResult{
			Success:        true,
			Reference:      intent.ID,
			Status:         models.StatusPending3DS,
			RequiresAction: true,
			ActionPayload:  map[string]string{"client_secret": intent.ClientSecret},
		}
		return result
	}

	status := a.mapIntentStatus(intent.Status)
	return &models.ProviderResult{
		Success:   status == models.StatusCompleted || status == models.StatusPending,
		Reference: intent.ID,
		Status:    status,
	}
}

func (a *CardAdapter) mapIntentStatus(s stripe.PaymentIntentStatus) models.TransactionStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return models.StatusCompleted
	case stripe.PaymentIntentStatusProcessing:
		return models.StatusPending
	case stripe.PaymentIntentStatusRequiresAction:
		return models.StatusPending3DS
	case stripe.PaymentIntentStatusCanceled:
		return models.StatusFailed
	default:
		// Unknown native statuses never map to COMPLETED or FAILED.
		return models.StatusPending
	}
}

func (a *CardAdapter) mapError(ctx context.Context, err error) *models.ProviderResult {
	if deadlineExceeded(ctx, err) {
		return timeoutResult()
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		retryable := stripeErr.Type == stripe.ErrorTypeAPI ||
			stripeErr.Code == stripe.ErrorCodeRateLimit
		a.logger.Warn("card provider declined",
			zap.String("code", string(stripeErr.Code)),
			zap.Bool("retryable", retryable))
		return failure(string(stripeErr.Code), stripeErr.Msg, retryable)
	}

	return failure("CARD_PROVIDER_ERROR", err.Error(), true)
}

var centFactor = decimalHundred()
