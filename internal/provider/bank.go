// internal/provider/bank.go
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

const bankCallTimeout = 10 * time.Second

type bankRequest struct {
	TransactionID string `json:"transactionId"`
	Scheme        string `json:"scheme"`
	IBAN          string `json:"iban,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	RoutingNumber string `json:"routingNumber,omitempty"`
	UPIID         string `json:"upiId,omitempty"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Signature     string `json:"signature"`
}

type bankResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// BankAdapter drives the bank transfer rail. The scheme (IBAN, domestic
// account+routing, or UPI id) is chosen from whichever identifier the
// validated request carries.
type BankAdapter struct {
	client  *resty.Client
	baseURL string
	signer  *signing.Signer
	logger  *zap.Logger
}

func NewBankAdapter(client *resty.Client, baseURL string, secret []byte, logger *zap.Logger) *BankAdapter {
	return &BankAdapter{
		client:  client,
		baseURL: baseURL,
		signer:  signing.NewSigner(secret),
		logger:  logger,
	}
}

func (a *BankAdapter) Rail() string { return "BANK_TRANSFER" }

func (a *BankAdapter) Execute(ctx context.Context, tx *models.Transaction) *models.ProviderResult {
	detail := tx.Request.Bank
	body := bankRequest{
		TransactionID: tx.ID,
		Amount:        tx.Request.Amount.StringFixed(2),
		Currency:      tx.Request.Currency,
	}
	fields := map[string]string{
		"transactionId": body.TransactionID,
		"amount":        body.Amount,
		"currency":      body.Currency,
	}

	switch {
	case detail.IBAN != "":
		body.Scheme = "IBAN"
		body.IBAN = detail.IBAN
		fields["iban"] = detail.IBAN
	case detail.UPIID != "":
		body.Scheme = "UPI"
		body.UPIID = detail.UPIID
		fields["upiId"] = detail.UPIID
	default:
		body.Scheme = "DOMESTIC"
		body.AccountNumber = detail.AccountNumber
		body.RoutingNumber = detail.RoutingNumber
		fields["accountNumber"] = detail.AccountNumber
		fields["routingNumber"] = detail.RoutingNumber
	}
	fields["scheme"] = body.Scheme
	body.Signature = a.signer.Sign(fields)

	callCtx, cancel := context.WithTimeout(ctx, bankCallTimeout)
	defer cancel()

	resp, err := a.client.R().
		SetContext(callCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(a.baseURL + "/transfers")
	if err != nil {
		if deadlineExceeded(callCtx, err) {
			return timeoutResult()
		}
		return failure("PROVIDER_UNREACHABLE", err.Error(), true)
	}
	if resp.IsError() {
		return failure("TRANSFER_REJECTED", fmt.Sprintf("bank rail returned %s", resp.Status()), resp.StatusCode() >= 500)
	}

	var out bankResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return failure("MALFORMED_RESPONSE", err.Error(), true)
	}

	status := mapBankStatus(out.Status)
	return &models.ProviderResult{
		Success:      status == models.StatusCompleted || status == models.StatusPending,
		Reference:    out.Reference,
		Status:       status,
		ErrorMessage: out.Message,
	}
}

func (a *BankAdapter) MapCallback(payload []byte) (models.TransactionStatus, string, error) {
	var event struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return models.StatusPending, "", err
	}
	return mapBankStatus(event.Status), event.Reference, nil
}

func mapBankStatus(native string) models.TransactionStatus {
	switch native {
	case "SETTLED", "COMPLETED":
		return models.StatusCompleted
	case "RETURNED", "FAILED":
		return models.StatusFailed
	case "EXPIRED":
		return models.StatusExpired
	default:
		return models.StatusPending
	}
}
