package validator

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

func testValidator() *Validator {
	v := New()
	v.now = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }
	return v
}

func baseRequest(method models.PaymentMethod) *models.PaymentRequest {
	return &models.PaymentRequest{
		Amount:     decimal.RequireFromString("100.00"),
		Currency:   "USD",
		Method:     method,
		MerchantID: "merchant-1",
	}
}

func TestLuhnValid(t *testing.T) {
	tests := []struct {
		name       string
		cardNumber string
		want       bool
	}{
		{
			name:       "Valid Visa",
			cardNumber: "4242424242424242",
			want:       true,
		},
		{
			name:       "Valid Mastercard",
			cardNumber: "5555555555554444",
			want:       true,
		},
		{
			name:       "Valid Amex",
			cardNumber: "378282246310005",
			want:       true,
		},
		{
			name:       "Invalid card",
			cardNumber: "1234567890123456",
			want:       false,
		},
		{
			name:       "Empty string",
			cardNumber: "",
			want:       false,
		},
		{
			name:       "Non-digit characters",
			cardNumber: "4242abcd42424242",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LuhnValid(tt.cardNumber)
			if got != tt.want {
				t.Errorf("LuhnValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectCardNetwork(t *testing.T) {
	tests := []struct {
		name       string
		cardNumber string
		want       string
	}{
		{
			name:       "Visa",
			cardNumber: "4242424242424242",
			want:       "visa",
		},
		{
			name:       "Mastercard",
			cardNumber: "5555555555554444",
			want:       "mastercard",
		},
		{
			name:       "Amex",
			cardNumber: "378282246310005",
			want:       "amex",
		},
		{
			name:       "Discover",
			cardNumber: "6011111111111117",
			want:       "discover",
		},
		{
			name:       "Unknown",
			cardNumber: "1234567890123456",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectCardNetwork(tt.cardNumber)
			if got != tt.want {
				t.Errorf("DetectCardNetwork() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateCoreFields(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name    string
		mutate  func(*models.PaymentRequest)
		wantErr string
	}{
		{
			name:    "zero amount",
			mutate:  func(r *models.PaymentRequest) { r.Amount = decimal.Zero },
			wantErr: "amount must be greater than zero",
		},
		{
			name:    "bad currency",
			mutate:  func(r *models.PaymentRequest) { r.Currency = "DOLLARS" },
			wantErr: "currency must be a 3-letter ISO 4217 code",
		},
		{
			name:    "unknown method",
			mutate:  func(r *models.PaymentRequest) { r.Method = "CARRIER_PIGEON" },
			wantErr: "unsupported payment method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(models.MethodCard)
			tt.mutate(req)

			result := v.Validate(req)
			if result.Valid {
				t.Fatal("expected invalid result")
			}
			if len(result.Errors) != 1 {
				t.Fatalf("core field violations must be terminal, got %d errors", len(result.Errors))
			}
			if !strings.Contains(result.Errors[0], tt.wantErr) {
				t.Errorf("got error %q, want %q", result.Errors[0], tt.wantErr)
			}
		})
	}
}

func TestValidateCard(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name      string
		card      *models.CardDetail
		wantValid bool
		wantErrs  int
	}{
		{
			name:      "valid visa",
			card:      &models.CardDetail{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2027, CVV: "123"},
			wantValid: true,
		},
		{
			name:      "amex needs 4 digit cvv",
			card:      &models.CardDetail{Number: "378282246310005", ExpMonth: 12, ExpYear: 2027, CVV: "1234"},
			wantValid: true,
		},
		{
			name:     "amex rejects 3 digit cvv",
			card:     &models.CardDetail{Number: "378282246310005", ExpMonth: 12, ExpYear: 2027, CVV: "123"},
			wantErrs: 1,
		},
		{
			name:     "luhn failure",
			card:     &models.CardDetail{Number: "4242424242424243", ExpMonth: 12, ExpYear: 2027, CVV: "123"},
			wantErrs: 1,
		},
		{
			name:     "expired card",
			card:     &models.CardDetail{Number: "4242424242424242", ExpMonth: 2, ExpYear: 2026, CVV: "123"},
			wantErrs: 1,
		},
		{
			name:      "expiry month this month is acceptable",
			card:      &models.CardDetail{Number: "4242424242424242", ExpMonth: 3, ExpYear: 2026, CVV: "123"},
			wantValid: true,
		},
		{
			name:     "accumulates all violations",
			card:     &models.CardDetail{Number: "1111", ExpMonth: 13, ExpYear: 2027, CVV: "12"},
			wantErrs: 3,
		},
		{
			name:     "missing detail",
			card:     nil,
			wantErrs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(models.MethodCard)
			req.Card = tt.card

			result := v.Validate(req)
			if result.Valid != tt.wantValid {
				t.Fatalf("Valid = %v (errors %v), want %v", result.Valid, result.Errors, tt.wantValid)
			}
			if !tt.wantValid && len(result.Errors) != tt.wantErrs {
				t.Errorf("got %d errors %v, want %d", len(result.Errors), result.Errors, tt.wantErrs)
			}
		})
	}
}

func TestValidateMobileMoney(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name      string
		detail    *models.MobileMoneyDetail
		wantValid bool
	}{
		{
			name:      "valid mpesa",
			detail:    &models.MobileMoneyDetail{Provider: "MPESA", PhoneNumber: "0712345678"},
			wantValid: true,
		},
		{
			name:      "valid with plus prefix",
			detail:    &models.MobileMoneyDetail{Provider: "MTN_MOMO", PhoneNumber: "+256772123456"},
			wantValid: true,
		},
		{
			name:   "unknown provider",
			detail: &models.MobileMoneyDetail{Provider: "ROCKET_CASH", PhoneNumber: "0712345678"},
		},
		{
			name:   "phone too short",
			detail: &models.MobileMoneyDetail{Provider: "MPESA", PhoneNumber: "12345"},
		},
		{
			name:   "phone with letters",
			detail: &models.MobileMoneyDetail{Provider: "MPESA", PhoneNumber: "07123abc78"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(models.MethodMobileMoney)
			req.MobileMoney = tt.detail

			result := v.Validate(req)
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v (errors %v), want %v", result.Valid, result.Errors, tt.wantValid)
			}
		})
	}
}

func TestValidateBankExactlyOneScheme(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name      string
		detail    *models.BankDetail
		wantValid bool
	}{
		{
			name:      "iban only",
			detail:    &models.BankDetail{IBAN: "DE89370400440532013000"},
			wantValid: true,
		},
		{
			name:      "account plus routing",
			detail:    &models.BankDetail{AccountNumber: "12345678", RoutingNumber: "021000021"},
			wantValid: true,
		},
		{
			name:      "upi id",
			detail:    &models.BankDetail{UPIID: "alice@okbank"},
			wantValid: true,
		},
		{
			name:   "iban and upi together",
			detail: &models.BankDetail{IBAN: "DE89370400440532013000", UPIID: "alice@okbank"},
		},
		{
			name:   "nothing provided",
			detail: &models.BankDetail{},
		},
		{
			name:   "malformed iban",
			detail: &models.BankDetail{IBAN: "NOT-AN-IBAN"},
		},
		{
			name:   "routing number wrong length",
			detail: &models.BankDetail{AccountNumber: "12345678", RoutingNumber: "12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(models.MethodBankTransfer)
			req.Bank = tt.detail

			result := v.Validate(req)
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v (errors %v), want %v", result.Valid, result.Errors, tt.wantValid)
			}
		})
	}
}

func TestValidateCrypto(t *testing.T) {
	v := testValidator()

	req := baseRequest(models.MethodCrypto)
	req.Crypto = &models.CryptoDetail{Address: "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", Network: "BTC"}
	if result := v.Validate(req); !result.Valid {
		t.Errorf("fiat-denominated crypto request should be valid, got %v", result.Errors)
	}

	req = baseRequest(models.MethodCrypto)
	req.Crypto = &models.CryptoDetail{Network: "BTC"}
	if result := v.Validate(req); result.Valid {
		t.Error("missing destination address should be invalid")
	}
}

func TestValidateWallet(t *testing.T) {
	v := testValidator()

	for _, method := range []models.PaymentMethod{models.MethodUPI, models.MethodAlipay, models.MethodApplePay} {
		req := baseRequest(method)
		req.Wallet = &models.WalletDetail{Token: "tok_abc123"}
		if result := v.Validate(req); !result.Valid {
			t.Errorf("%s: valid wallet request rejected: %v", method, result.Errors)
		}

		req.Wallet = &models.WalletDetail{}
		if result := v.Validate(req); result.Valid {
			t.Errorf("%s: empty wallet token accepted", method)
		}
	}
}
