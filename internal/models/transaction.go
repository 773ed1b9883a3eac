// internal/models/transaction.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusInitiated           TransactionStatus = "INITIATED"
	StatusRiskChecked         TransactionStatus = "RISK_CHECKED"
	StatusProviderDispatched  TransactionStatus = "PROVIDER_DISPATCHED"
	StatusRejected            TransactionStatus = "REJECTED"
	StatusPending             TransactionStatus = "PENDING"
	StatusPending3DS          TransactionStatus = "PENDING_3DS"
	StatusCompleted           TransactionStatus = "COMPLETED"
	StatusFailed              TransactionStatus = "FAILED"
	StatusTimeout             TransactionStatus = "TIMEOUT"
	StatusExpired             TransactionStatus = "EXPIRED"
	StatusCancelled           TransactionStatus = "CANCELLED"
	StatusSettlementPending   TransactionStatus = "SETTLEMENT_PENDING"
	StatusSettlementCompleted TransactionStatus = "SETTLEMENT_COMPLETED"
	StatusSettlementFailed    TransactionStatus = "SETTLEMENT_FAILED"
)

// Terminal reports whether no further provider interaction can occur.
// TIMEOUT is not terminal: the caller may retry with the same id.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusFailed, StatusExpired,
		StatusCancelled, StatusSettlementCompleted, StatusSettlementFailed:
		return true
	}
	return false
}

type FeeBreakdown struct {
	BaseFee       decimal.Decimal `json:"base_fee"`
	PercentageFee decimal.Decimal `json:"percentage_fee"`
	TotalFee      decimal.Decimal `json:"total_fee"`
	Currency      string          `json:"currency"`
}

type RiskAssessment struct {
	Score      int      `json:"score"`
	Fraudulent bool     `json:"fraudulent"`
	ReasonCode string   `json:"reason_code,omitempty"`
	Flags      []string `json:"flags,omitempty"`
}

// ProviderResult is the normalized envelope every rail adapter maps its
// native response into. Method-specific shapes must not leak past it.
type ProviderResult struct {
	Success        bool              `json:"success"`
	Reference      string            `json:"reference,omitempty"`
	Status         TransactionStatus `json:"status"`
	ErrorCode      string            `json:"error_code,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	Retryable      bool              `json:"retryable,omitempty"`
	RequiresAction bool              `json:"requires_action,omitempty"`
	ActionPayload  map[string]string `json:"action_payload,omitempty"`
}

type SettlementChannel string

const (
	ChannelInternalTransfer SettlementChannel = "INTERNAL_TRANSFER"
	ChannelBankTransfer     SettlementChannel = "BANK_TRANSFER"
	ChannelMobileMoney      SettlementChannel = "MOBILE_MONEY"
	ChannelCrypto           SettlementChannel = "CRYPTO"
)

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "PENDING"
	SettlementStatusCompleted SettlementStatus = "COMPLETED"
	SettlementStatusFailed    SettlementStatus = "FAILED"
)

type SettlementRecord struct {
	Channel     SettlementChannel `json:"channel"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Status      SettlementStatus  `json:"status"`
	Reference   string            `json:"reference,omitempty"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
}

// Transaction is owned by the task processing it until it reaches a
// terminal or waiting-on-callback state. The ID is assigned exactly once.
type Transaction struct {
	ID           string            `json:"id"`
	Request      PaymentRequest    `json:"request"`
	Status       TransactionStatus `json:"status"`
	CardNetwork  string            `json:"card_network,omitempty"`
	Fees         *FeeBreakdown     `json:"fees,omitempty"`
	Risk         *RiskAssessment   `json:"risk,omitempty"`
	Provider     *ProviderResult   `json:"provider,omitempty"`
	Settlement   *SettlementRecord `json:"settlement,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ExpiresAt    time.Time         `json:"expires_at,omitempty"`
}

// Database schema for the ledger collaborator.
const TransitionSchema = `
CREATE TABLE IF NOT EXISTS transaction_transitions (
    id VARCHAR(36) PRIMARY KEY,
    transaction_id VARCHAR(36) NOT NULL,
    from_status VARCHAR(24) NOT NULL,
    to_status VARCHAR(24) NOT NULL,
    metadata JSONB,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transitions_txn ON transaction_transitions (transaction_id, created_at);
`
