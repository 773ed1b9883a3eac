// internal/provider/crypto.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/signing"
)

const (
	cryptoCallTimeout     = 10 * time.Second
	requiredConfirmations = 3
)

// RateSource quotes fiat->crypto conversion. The shipped implementation
// is a static table; a live rate feed plugs in behind this interface.
type RateSource interface {
	Quote(currency, network string) (decimal.Decimal, error)
}

// StaticRates quotes from a fixed table keyed "CURRENCY/NETWORK".
type StaticRates map[string]decimal.Decimal

func (r StaticRates) Quote(currency, network string) (decimal.Decimal, error) {
	rate, ok := r[currency+"/"+network]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s/%s", currency, network)
	}
	return rate, nil
}

type cryptoRequest struct {
	TransactionID string `json:"transactionId"`
	Address       string `json:"address"`
	Network       string `json:"network"`
	Amount        string `json:"amount"`
	Signature     string `json:"signature"`
}

type cryptoResponse struct {
	TxHash        string `json:"txHash"`
	Status        string `json:"status"`
	Confirmations int    `json:"confirmations"`
}

// CryptoAdapter broadcasts on-chain transfers and confirms them by
// polling; there are no provider callbacks on this rail.
type CryptoAdapter struct {
	client  *resty.Client
	baseURL string
	signer  *signing.Signer
	rates   RateSource
	logger  *zap.Logger
}

func NewCryptoAdapter(client *resty.Client, baseURL string, secret []byte, rates RateSource, logger *zap.Logger) *CryptoAdapter {
	return &CryptoAdapter{
		client:  client,
		baseURL: baseURL,
		signer:  signing.NewSigner(secret),
		rates:   rates,
		logger:  logger,
	}
}

func (a *CryptoAdapter) Rail() string { return "CRYPTO" }

func (a *CryptoAdapter) Execute(ctx context.Context, tx *models.Transaction) *models.ProviderResult {
	detail := tx.Request.Crypto

	amount := detail.CryptoAmount
	if amount.LessThanOrEqual(decimal.Zero) {
		rate, err := a.rates.Quote(tx.Request.Currency, detail.Network)
		if err != nil {
			return failure("NO_CONVERSION_RATE", err.Error(), false)
		}
		amount = tx.Request.Amount.Div(rate).Round(8)
	}

	body := cryptoRequest{
		TransactionID: tx.ID,
		Address:       detail.Address,
		Network:       detail.Network,
		Amount:        amount.String(),
	}
	body.Signature = a.signer.Sign(map[string]string{
		"transactionId": body.TransactionID,
		"address":       body.Address,
		"network":       body.Network,
		"amount":        body.Amount,
	})

	callCtx, cancel := context.WithTimeout(ctx, cryptoCallTimeout)
	defer cancel()

	resp, err := a.client.R().
		SetContext(callCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(a.baseURL + "/broadcast")
	if err != nil {
		if deadlineExceeded(callCtx, err) {
			return timeoutResult()
		}
		return failure("BROADCAST_FAILED", err.Error(), true)
	}
	if resp.IsError() {
		return failure("BROADCAST_REJECTED", fmt.Sprintf("node returned %s", resp.Status()), resp.StatusCode() >= 500)
	}

	var out cryptoResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return failure("MALFORMED_RESPONSE", err.Error(), true)
	}

	a.logger.Info("transfer broadcast",
		zap.String("transaction_id", tx.ID),
		zap.String("tx_hash", out.TxHash))

	// On-chain transfers complete through polling once confirmed.
	return &models.ProviderResult{
		Success:   true,
		Reference: out.TxHash,
		Status:    models.StatusPending,
	}
}

// Poll checks confirmation depth; the transfer completes at the required
// confirmation count.
func (a *CryptoAdapter) Poll(ctx context.Context, tx *models.Transaction) *models.ProviderResult {
	if tx.Provider == nil || tx.Provider.Reference == "" {
		return failure("MISSING_TX_HASH", "nothing to poll", false)
	}

	callCtx, cancel := context.WithTimeout(ctx, cryptoCallTimeout)
	defer cancel()

	resp, err := a.client.R().
		SetContext(callCtx).
		Get(fmt.Sprintf("%s/transactions/%s", a.baseURL, tx.Provider.Reference))
	if err != nil {
		if deadlineExceeded(callCtx, err) {
			return timeoutResult()
		}
		return failure("EXPLORER_UNREACHABLE", err.Error(), true)
	}

	var out cryptoResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return failure("MALFORMED_RESPONSE", err.Error(), true)
	}

	switch {
	case out.Status == "dropped":
		return failure("TX_DROPPED", "transaction dropped from mempool", true)
	case out.Confirmations >= requiredConfirmations:
		return &models.ProviderResult{Success: true, Reference: out.TxHash, Status: models.StatusCompleted}
	default:
		return &models.ProviderResult{Success: true, Reference: out.TxHash, Status: models.StatusPending}
	}
}
