// internal/provider/wallet.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/signing"
)

const walletCallTimeout = 8 * time.Second

type walletRequest struct {
	TransactionID string `json:"transactionId"`
	Method        string `json:"method"`
	Token         string `json:"token"`
	AccountID     string `json:"accountId,omitempty"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Signature     string `json:"signature"`
}

type walletResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// WalletAdapter serves the token-based wallet rails (UPI, Alipay, WeChat
// Pay, Apple Pay, Google Pay), which share one charge protocol.
type WalletAdapter struct {
	client  *resty.Client
	baseURL string
	signer  *signing.Signer
	logger  *zap.Logger
}

func NewWalletAdapter(client *resty.Client, baseURL string, secret []byte, logger *zap.Logger) *WalletAdapter {
	return &WalletAdapter{
		client:  client,
		baseURL: baseURL,
		signer:  signing.NewSigner(secret),
		logger:  logger,
	}
}

func (a *WalletAdapter) Rail() string { return "WALLET" }

func (a *WalletAdapter) Execute(ctx context.Context, tx *models.Transaction) *models.ProviderResult {
	detail := tx.Request.Wallet
	body := walletRequest{
		TransactionID: tx.ID,
		Method:        string(tx.Request.Method),
		Token:         detail.Token,
		AccountID:     detail.AccountID,
		Amount:        tx.Request.Amount.StringFixed(2),
		Currency:      tx.Request.Currency,
	}
	body.Signature = a.signer.Sign(map[string]string{
		"transactionId": body.TransactionID,
		"method":        body.Method,
		"token":         body.Token,
		"accountId":     body.AccountID,
		"amount":        body.Amount,
		"currency":      body.Currency,
	})

	callCtx, cancel := context.WithTimeout(ctx, walletCallTimeout)
	defer cancel()

	resp, err := a.client.R().
		SetContext(callCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(a.baseURL + "/charges")
	if err != nil {
		if deadlineExceeded(callCtx, err) {
			return timeoutResult()
		}
		return failure("PROVIDER_UNREACHABLE", err.Error(), true)
	}
	if resp.IsError() {
		return failure("CHARGE_REJECTED", fmt.Sprintf("wallet rail returned %s", resp.Status()), resp.StatusCode() >= 500)
	}

	var out walletResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return failure("MALFORMED_RESPONSE", err.Error(), true)
	}

	status := mapWalletStatus(out.Status)
	return &models.ProviderResult{
		Success:      status == models.StatusCompleted || status == models.StatusPending,
		Reference:    out.Reference,
		Status:       status,
		ErrorMessage: out.Message,
	}
}

func (a *WalletAdapter) MapCallback(payload []byte) (models.TransactionStatus, string, error) {
	var event struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return models.StatusPending, "", err
	}
	return mapWalletStatus(event.Status), event.Reference, nil
}

func mapWalletStatus(native string) models.TransactionStatus {
	switch native {
	case "CAPTURED", "SUCCESS":
		return models.StatusCompleted
	case "DECLINED", "FAILED":
		return models.StatusFailed
	case "EXPIRED":
		return models.StatusExpired
	default:
		return models.StatusPending
	}
}
