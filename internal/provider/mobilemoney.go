// internal/provider/mobilemoney.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/provider/momo"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/signing"
)

const (
	// Carrier-side confirmation rails get the long deadline.
	slowRailTimeout = 15 * time.Second
	fastRailTimeout = 8 * time.Second
)

type momoRequest struct {
	TransactionID string `json:"transactionId"`
	Provider      string `json:"provider"`
	MSISDN        string `json:"msisdn"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Signature     string `json:"signature"`
}

type momoResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// MobileMoneyAdapter serves every mobile money network through one
// signed-JSON collection protocol, parameterized by the provider
// directory. Phone numbers are normalized to E.164 before dispatch.
type MobileMoneyAdapter struct {
	client  *resty.Client
	baseURL string
	signers map[string]*signing.Signer
	logger  *zap.Logger
}

func NewMobileMoneyAdapter(client *resty.Client, baseURL string, secrets map[string][]byte, logger *zap.Logger) *MobileMoneyAdapter {
	signers := make(map[string]*signing.Signer, len(secrets))
	for name, secret := range secrets {
		signers[name] = signing.NewSigner(secret)
	}
	return &MobileMoneyAdapter{
		client:  client,
		baseURL: baseURL,
		signers: signers,
		logger:  logger,
	}
}

func (a *MobileMoneyAdapter) Rail() string { return "MOBILE_MONEY" }

func (a *MobileMoneyAdapter) Execute(ctx context.Context, tx *models.Transaction) *models.ProviderResult {
	detail := tx.Request.MobileMoney
	p, ok := momo.Lookup(detail.Provider)
	if !ok {
		return failure("UNKNOWN_PROVIDER", fmt.Sprintf("no mobile money provider %q", detail.Provider), false)
	}

	signer, ok := a.signers[p.Name]
	if !ok {
		return failure("MISSING_SECRET", fmt.Sprintf("no signing secret configured for %s", p.Name), false)
	}

	msisdn := p.NormalizeMSISDN(detail.PhoneNumber)
	body := momoRequest{
		TransactionID: tx.ID,
		Provider:      p.Name,
		MSISDN:        msisdn,
		Amount:        tx.Request.Amount.StringFixed(2),
		Currency:      tx.Request.Currency,
	}
	body.Signature = signer.Sign(map[string]string{
		"transactionId": body.TransactionID,
		"provider":      body.Provider,
		"msisdn":        body.MSISDN,
		"amount":        body.Amount,
		"currency":      body.Currency,
	})

	timeout := fastRailTimeout
	if p.Slow {
		timeout = slowRailTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a.logger.Info("dispatching mobile money collection",
		zap.String("transaction_id", tx.ID),
		zap.String("provider", p.Name),
		zap.String("msisdn", models.MaskPhoneNumber(msisdn)))

	resp, err := a.client.R().
		SetContext(callCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(a.baseURL + "/collections")
	if err != nil {
		if deadlineExceeded(callCtx, err) {
			return timeoutResult()
		}
		return failure("PROVIDER_UNREACHABLE", err.Error(), true)
	}
	if resp.IsError() {
		return failure("PROVIDER_REJECTED", fmt.Sprintf("provider returned %s", resp.Status()), resp.StatusCode() >= 500)
	}

	var out momoResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return failure("MALFORMED_RESPONSE", err.Error(), true)
	}

	status := p.MapStatus(out.Status)
	return &models.ProviderResult{
		Success:      status == models.StatusCompleted || status == models.StatusPending,
		Reference:    out.Reference,
		Status:       status,
		ErrorCode:    errorCodeFor(status, out.Status),
		ErrorMessage: out.Message,
		Retryable:    status == models.StatusTimeout,
	}
}

// Poll queries collection status for rails without reliable callbacks.
func (a *MobileMoneyAdapter) Poll(ctx context.Context, tx *models.Transaction) *models.ProviderResult {
	detail := tx.Request.MobileMoney
	p, ok := momo.Lookup(detail.Provider)
	if !ok {
		return failure("UNKNOWN_PROVIDER", detail.Provider, false)
	}

	callCtx, cancel := context.WithTimeout(ctx, fastRailTimeout)
	defer cancel()

	resp, err := a.client.R().
		SetContext(callCtx).
		Get(fmt.Sprintf("%s/collections/%s", a.baseURL, tx.ID))
	if err != nil {
		if deadlineExceeded(callCtx, err) {
			return timeoutResult()
		}
		return failure("PROVIDER_UNREACHABLE", err.Error(), true)
	}

	var out momoResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return failure("MALFORMED_RESPONSE", err.Error(), true)
	}

	status := p.MapStatus(out.Status)
	return &models.ProviderResult{
		Success:   status == models.StatusCompleted || status == models.StatusPending,
		Reference: out.Reference,
		Status:    status,
	}
}

// MapCallback maps a verified provider callback onto the shared status set.
func (a *MobileMoneyAdapter) MapCallback(payload []byte) (models.TransactionStatus, string, error) {
	var event struct {
		Provider  string `json:"provider"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return models.StatusPending, "", err
	}

	p, ok := momo.Lookup(event.Provider)
	if !ok {
		return models.StatusPending, "", fmt.Errorf("callback from unknown provider %q", event.Provider)
	}
	return p.MapStatus(event.Status), event.Reference, nil
}

func errorCodeFor(status models.TransactionStatus, native string) string {
	switch status {
	case models.StatusFailed:
		return "COLLECTION_FAILED_" + native
	case models.StatusTimeout:
		return "PROVIDER_TIMEOUT"
	}
	return ""
}
