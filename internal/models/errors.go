// internal/models/errors.go
package models

import "fmt"

// ValidationError is caller-fixable and never reaches a provider.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return fmt.Sprintf("request failed %d validation checks", len(e.Errors))
}

// FraudRejection is terminal; the transaction must never be retried.
type FraudRejection struct {
	Score      int
	ReasonCode string
}

func (e *FraudRejection) Error() string {
	return fmt.Sprintf("transaction rejected: %s (score %d)", e.ReasonCode, e.Score)
}

// ProviderError is a rail-specific failure converted at the adapter
// boundary. Retryable errors may be retried with the same transaction id.
type ProviderError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}

// CallbackVerificationError means the callback was discarded unprocessed.
type CallbackVerificationError struct {
	Provider string
}

func (e *CallbackVerificationError) Error() string {
	return fmt.Sprintf("callback signature verification failed for %s", e.Provider)
}

// SettlementError does not reverse the originating COMPLETED payment.
type SettlementError struct {
	Channel SettlementChannel
	Message string
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement via %s failed: %s", e.Channel, e.Message)
}
