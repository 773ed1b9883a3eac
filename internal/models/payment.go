// internal/models/payment.go
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	MethodCrypto       PaymentMethod = "CRYPTO"
	MethodUPI          PaymentMethod = "UPI"
	MethodAlipay       PaymentMethod = "ALIPAY"
	MethodWeChat       PaymentMethod = "WECHAT"
	MethodApplePay     PaymentMethod = "APPLE_PAY"
	MethodGooglePay    PaymentMethod = "GOOGLE_PAY"
)

// KnownMethods lists every payment method the dispatcher can route.
var KnownMethods = []PaymentMethod{
	MethodCard, MethodBankTransfer, MethodMobileMoney, MethodCrypto,
	MethodUPI, MethodAlipay, MethodWeChat, MethodApplePay, MethodGooglePay,
}

func (m PaymentMethod) Known() bool {
	for _, k := range KnownMethods {
		if m == k {
			return true
		}
	}
	return false
}

// IsWallet reports whether the method is one of the token-based wallet
// rails that share a single detail payload shape.
func (m PaymentMethod) IsWallet() bool {
	switch m {
	case MethodUPI, MethodAlipay, MethodWeChat, MethodApplePay, MethodGooglePay:
		return true
	}
	return false
}

type MerchantTier string

const (
	TierStandard MerchantTier = "STANDARD"
	TierSilver   MerchantTier = "SILVER"
	TierGold     MerchantTier = "GOLD"
	TierPlatinum MerchantTier = "PLATINUM"
)

type CardDetail struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVV      string `json:"cvv"`
	Holder   string `json:"holder,omitempty"`
}

type MobileMoneyDetail struct {
	Provider    string `json:"provider"`
	PhoneNumber string `json:"phone_number"`
}

type BankDetail struct {
	IBAN          string `json:"iban,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
}

type CryptoDetail struct {
	Address      string          `json:"address"`
	Network      string          `json:"network,omitempty"`
	CryptoAmount decimal.Decimal `json:"crypto_amount,omitempty"`
}

type WalletDetail struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id,omitempty"`
}

type RecipientType string

const (
	RecipientBankAccount   RecipientType = "BANK_ACCOUNT"
	RecipientMobileMoney   RecipientType = "MOBILE_MONEY"
	RecipientCryptoAddress RecipientType = "CRYPTO_ADDRESS"
)

// RecipientDescriptor identifies where instant-settlement funds go.
type RecipientDescriptor struct {
	InternalAccountRef string        `json:"internal_account_ref,omitempty"`
	Type               RecipientType `json:"type,omitempty"`
	AccountNumber      string        `json:"account_number,omitempty"`
	BankCode           string        `json:"bank_code,omitempty"`
	PhoneNumber        string        `json:"phone_number,omitempty"`
	Provider           string        `json:"provider,omitempty"`
	CryptoAddress      string        `json:"crypto_address,omitempty"`
	CryptoNetwork      string        `json:"crypto_network,omitempty"`
}

// PaymentRequest is immutable once submitted; the dispatcher snapshots it
// onto the Transaction and never mutates it afterwards.
type PaymentRequest struct {
	Amount            decimal.Decimal      `json:"amount" binding:"required"`
	Currency          string               `json:"currency" binding:"required,len=3"`
	Method            PaymentMethod        `json:"method" binding:"required"`
	Card              *CardDetail          `json:"card,omitempty"`
	MobileMoney       *MobileMoneyDetail   `json:"mobile_money,omitempty"`
	Bank              *BankDetail          `json:"bank,omitempty"`
	Crypto            *CryptoDetail        `json:"crypto,omitempty"`
	Wallet            *WalletDetail        `json:"wallet,omitempty"`
	CustomerRef       string               `json:"customer_ref"`
	MerchantID        string               `json:"merchant_id" binding:"required"`
	MerchantTier      MerchantTier         `json:"merchant_tier,omitempty"`
	Country           string               `json:"country,omitempty"`
	BillingCountry    string               `json:"billing_country,omitempty"`
	ShippingCountry   string               `json:"shipping_country,omitempty"`
	Metadata          map[string]string    `json:"metadata,omitempty"`
	InstantSettlement bool                 `json:"instant_settlement,omitempty"`
	Recipient         *RecipientDescriptor `json:"recipient,omitempty"`
	IdempotencyKey    string               `json:"idempotency_key,omitempty"`
}

// MaskCardNumber keeps only the last four digits.
func MaskCardNumber(number string) string {
	if len(number) < 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// MaskPhoneNumber keeps the dialing prefix and last three digits.
func MaskPhoneNumber(phone string) string {
	if len(phone) <= 7 {
		return strings.Repeat("*", len(phone))
	}
	return phone[:4] + strings.Repeat("*", len(phone)-7) + phone[len(phone)-3:]
}
