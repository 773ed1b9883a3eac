// internal/settlement/channels.go
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/ledger"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/provider/momo"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/signing"
)

const payoutTimeout = 15 * time.Second

// InternalTransfer settles onto an internal ledger account with a
// double-entry posting pair recorded against the transaction.
type InternalTransfer struct {
	ledger ledger.Ledger
	logger *zap.Logger
}

func NewInternalTransfer(l ledger.Ledger, logger *zap.Logger) *InternalTransfer {
	return &InternalTransfer{ledger: l, logger: logger}
}

func (c *InternalTransfer) Name() models.SettlementChannel { return models.ChannelInternalTransfer }

func (c *InternalTransfer) Settle(ctx context.Context, tx *models.Transaction, recipient *models.RecipientDescriptor, amount decimal.Decimal) (string, error) {
	if recipient == nil || recipient.InternalAccountRef == "" {
		return "", fmt.Errorf("recipient has no internal account reference")
	}

	reference := settlementReference("INT", tx.ID)
	err := c.ledger.Append(ctx, tx.ID, models.StatusSettlementPending, models.StatusSettlementPending, map[string]string{
		"posting":        "double_entry",
		"debit_account":  "merchant_settlement_liability",
		"credit_account": recipient.InternalAccountRef,
		"amount":         amount.StringFixed(2),
		"currency":       tx.Request.Currency,
		"reference":      reference,
	})
	if err != nil {
		return "", fmt.Errorf("internal posting failed: %w", err)
	}
	return reference, nil
}

type payoutResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// BankPayout settles to an external bank account.
type BankPayout struct {
	client  *resty.Client
	baseURL string
	signer  *signing.Signer
}

func NewBankPayout(client *resty.Client, baseURL string, secret []byte) *BankPayout {
	return &BankPayout{client: client, baseURL: baseURL, signer: signing.NewSigner(secret)}
}

func (c *BankPayout) Name() models.SettlementChannel { return models.ChannelBankTransfer }

func (c *BankPayout) Settle(ctx context.Context, tx *models.Transaction, recipient *models.RecipientDescriptor, amount decimal.Decimal) (string, error) {
	reference := settlementReference("BNK", tx.ID)
	fields := map[string]string{
		"reference": reference,
		"amount":    amount.StringFixed(2),
		"currency":  tx.Request.Currency,
	}
	body := map[string]string{
		"reference": reference,
		"amount":    fields["amount"],
		"currency":  tx.Request.Currency,
	}
	if recipient != nil {
		body["accountNumber"] = recipient.AccountNumber
		body["bankCode"] = recipient.BankCode
		fields["accountNumber"] = recipient.AccountNumber
	}
	body["signature"] = c.signer.Sign(fields)

	return executePayout(ctx, c.client, c.baseURL+"/payouts/bank", body, reference)
}

// MobileMoneyPayout settles to a mobile money wallet.
type MobileMoneyPayout struct {
	client  *resty.Client
	baseURL string
	signer  *signing.Signer
}

func NewMobileMoneyPayout(client *resty.Client, baseURL string, secret []byte) *MobileMoneyPayout {
	return &MobileMoneyPayout{client: client, baseURL: baseURL, signer: signing.NewSigner(secret)}
}

func (c *MobileMoneyPayout) Name() models.SettlementChannel { return models.ChannelMobileMoney }

func (c *MobileMoneyPayout) Settle(ctx context.Context, tx *models.Transaction, recipient *models.RecipientDescriptor, amount decimal.Decimal) (string, error) {
	if recipient == nil || recipient.PhoneNumber == "" {
		return "", fmt.Errorf("recipient has no phone number")
	}

	msisdn := recipient.PhoneNumber
	if p, ok := momo.Lookup(recipient.Provider); ok {
		msisdn = p.NormalizeMSISDN(msisdn)
	}

	reference := settlementReference("MMO", tx.ID)
	fields := map[string]string{
		"reference": reference,
		"msisdn":    msisdn,
		"provider":  recipient.Provider,
		"amount":    amount.StringFixed(2),
		"currency":  tx.Request.Currency,
	}
	body := map[string]string{
		"reference": reference,
		"msisdn":    msisdn,
		"provider":  recipient.Provider,
		"amount":    fields["amount"],
		"currency":  tx.Request.Currency,
		"signature": c.signer.Sign(fields),
	}

	return executePayout(ctx, c.client, c.baseURL+"/payouts/mobile", body, reference)
}

// CryptoPayout settles to an on-chain address.
type CryptoPayout struct {
	client  *resty.Client
	baseURL string
	signer  *signing.Signer
}

func NewCryptoPayout(client *resty.Client, baseURL string, secret []byte) *CryptoPayout {
	return &CryptoPayout{client: client, baseURL: baseURL, signer: signing.NewSigner(secret)}
}

func (c *CryptoPayout) Name() models.SettlementChannel { return models.ChannelCrypto }

func (c *CryptoPayout) Settle(ctx context.Context, tx *models.Transaction, recipient *models.RecipientDescriptor, amount decimal.Decimal) (string, error) {
	if recipient == nil || recipient.CryptoAddress == "" {
		return "", fmt.Errorf("recipient has no crypto address")
	}

	reference := settlementReference("CRY", tx.ID)
	fields := map[string]string{
		"reference": reference,
		"address":   recipient.CryptoAddress,
		"network":   recipient.CryptoNetwork,
		"amount":    amount.StringFixed(2),
		"currency":  tx.Request.Currency,
	}
	body := map[string]string{
		"reference": reference,
		"address":   recipient.CryptoAddress,
		"network":   recipient.CryptoNetwork,
		"amount":    fields["amount"],
		"currency":  tx.Request.Currency,
		"signature": c.signer.Sign(fields),
	}

	return executePayout(ctx, c.client, c.baseURL+"/payouts/crypto", body, reference)
}

func executePayout(ctx context.Context, client *resty.Client, url string, body map[string]string, reference string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, payoutTimeout)
	defer cancel()

	resp, err := client.R().
		SetContext(callCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return "", fmt.Errorf("payout call failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("payout rejected with %s", resp.Status())
	}

	var out payoutResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("malformed payout response: %w", err)
	}
	if out.Status == "FAILED" {
		return "", fmt.Errorf("payout failed: %s", out.Message)
	}
	if out.Reference != "" {
		return out.Reference, nil
	}
	return reference, nil
}
