package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/signing"
)

func momoTransaction(provider, phone string) *models.Transaction {
	return &models.Transaction{
		ID: "tx-momo-1",
		Request: models.PaymentRequest{
			Amount:      decimal.RequireFromString("50.00"),
			Currency:    "KES",
			Method:      models.MethodMobileMoney,
			MobileMoney: &models.MobileMoneyDetail{Provider: provider, PhoneNumber: phone},
		},
		Status: models.StatusProviderDispatched,
	}
}

func momoSecrets() map[string][]byte {
	return map[string][]byte{"MPESA": []byte("mpesa-secret")}
}

func TestMobileMoneyExecuteNormalizesAndSigns(t *testing.T) {
	var received momoRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(momoResponse{Status: "0", Reference: "MP-1"})
	}))
	defer server.Close()

	adapter := NewMobileMoneyAdapter(resty.New(), server.URL, momoSecrets(), zap.NewNop())
	result := adapter.Execute(context.Background(), momoTransaction("MPESA", "0712345678"))

	if !result.Success || result.Status != models.StatusCompleted {
		t.Fatalf("result = %+v, want completed success", result)
	}
	if result.Reference != "MP-1" {
		t.Errorf("Reference = %q, want MP-1", result.Reference)
	}

	if received.MSISDN != "+254712345678" {
		t.Errorf("MSISDN = %q, want +254712345678", received.MSISDN)
	}

	wantSig := signing.NewSigner([]byte("mpesa-secret")).Sign(map[string]string{
		"transactionId": received.TransactionID,
		"provider":      received.Provider,
		"msisdn":        received.MSISDN,
		"amount":        received.Amount,
		"currency":      received.Currency,
	})
	if received.Signature != wantSig {
		t.Errorf("Signature = %q, want %q", received.Signature, wantSig)
	}
}

func TestMobileMoneyExecuteMapsNativeStatuses(t *testing.T) {
	tests := []struct {
		native     string
		wantStatus models.TransactionStatus
		wantOK     bool
	}{
		{"0", models.StatusCompleted, true},
		{"QUEUED", models.StatusPending, true},
		{"1032", models.StatusFailed, false},
		{"BRAND_NEW_CODE", models.StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(momoResponse{Status: tt.native, Reference: "MP-2"})
			}))
			defer server.Close()

			adapter := NewMobileMoneyAdapter(resty.New(), server.URL, momoSecrets(), zap.NewNop())
			result := adapter.Execute(context.Background(), momoTransaction("MPESA", "0712345678"))

			if result.Status != tt.wantStatus || result.Success != tt.wantOK {
				t.Errorf("got status=%s success=%v, want status=%s success=%v",
					result.Status, result.Success, tt.wantStatus, tt.wantOK)
			}
		})
	}
}

func TestMobileMoneyExecuteUnreachableProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	adapter := NewMobileMoneyAdapter(resty.New(), server.URL, momoSecrets(), zap.NewNop())
	result := adapter.Execute(context.Background(), momoTransaction("MPESA", "0712345678"))

	if result.Success {
		t.Fatal("unreachable provider must not succeed")
	}
	if !result.Retryable {
		t.Error("transport failures should be retryable")
	}
}

func TestMobileMoneyExecuteMissingSecret(t *testing.T) {
	adapter := NewMobileMoneyAdapter(resty.New(), "http://unused", momoSecrets(), zap.NewNop())
	result := adapter.Execute(context.Background(), momoTransaction("MTN_MOMO", "0772123456"))

	if result.Success || result.ErrorCode != "MISSING_SECRET" {
		t.Errorf("result = %+v, want MISSING_SECRET failure", result)
	}
}

func TestMobileMoneyMapCallback(t *testing.T) {
	adapter := NewMobileMoneyAdapter(resty.New(), "http://unused", momoSecrets(), zap.NewNop())

	status, ref, err := adapter.MapCallback([]byte(`{"provider":"MPESA","status":"0","reference":"MP-9","transactionId":"tx-1"}`))
	if err != nil {
		t.Fatal(err)
	}
	if status != models.StatusCompleted || ref != "MP-9" {
		t.Errorf("got (%s, %q), want (COMPLETED, MP-9)", status, ref)
	}

	if _, _, err := adapter.MapCallback([]byte(`{"provider":"GHOST","status":"0"}`)); err == nil {
		t.Error("unknown provider callback should error")
	}
}

func TestBankStatusMapping(t *testing.T) {
	tests := []struct {
		native string
		want   models.TransactionStatus
	}{
		{"SETTLED", models.StatusCompleted},
		{"RETURNED", models.StatusFailed},
		{"EXPIRED", models.StatusExpired},
		{"IN_CLEARING", models.StatusPending},
	}

	for _, tt := range tests {
		if got := mapBankStatus(tt.native); got != tt.want {
			t.Errorf("mapBankStatus(%q) = %s, want %s", tt.native, got, tt.want)
		}
	}
}

func TestCryptoExecuteConvertsFiat(t *testing.T) {
	var received cryptoRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(cryptoResponse{TxHash: "0xabc", Status: "broadcast"})
	}))
	defer server.Close()

	rates := StaticRates{"USD/BTC": decimal.RequireFromString("50000")}
	adapter := NewCryptoAdapter(resty.New(), server.URL, []byte("chain-secret"), rates, zap.NewNop())

	tx := &models.Transaction{
		ID: "tx-crypto-1",
		Request: models.PaymentRequest{
			Amount:   decimal.RequireFromString("100.00"),
			Currency: "USD",
			Method:   models.MethodCrypto,
			Crypto:   &models.CryptoDetail{Address: "bc1qtest", Network: "BTC"},
		},
	}

	result := adapter.Execute(context.Background(), tx)
	if !result.Success || result.Status != models.StatusPending {
		t.Fatalf("result = %+v, want pending success", result)
	}
	if result.Reference != "0xabc" {
		t.Errorf("Reference = %q, want 0xabc", result.Reference)
	}
	if received.Amount != "0.002" {
		t.Errorf("converted amount = %q, want 0.002", received.Amount)
	}
}

func TestCryptoPollConfirmations(t *testing.T) {
	tests := []struct {
		name          string
		confirmations int
		status        string
		want          models.TransactionStatus
	}{
		{"unconfirmed", 0, "pending", models.StatusPending},
		{"partially confirmed", 2, "pending", models.StatusPending},
		{"confirmed", 3, "confirmed", models.StatusCompleted},
		{"dropped", 0, "dropped", models.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(cryptoResponse{TxHash: "0xabc", Status: tt.status, Confirmations: tt.confirmations})
			}))
			defer server.Close()

			adapter := NewCryptoAdapter(resty.New(), server.URL, []byte("s"), StaticRates{}, zap.NewNop())
			tx := &models.Transaction{
				ID:       "tx-crypto-2",
				Provider: &models.ProviderResult{Reference: "0xabc"},
				Request: models.PaymentRequest{
					Crypto: &models.CryptoDetail{Address: "bc1qtest", Network: "BTC"},
				},
			}

			if got := adapter.Poll(context.Background(), tx); got.Status != tt.want {
				t.Errorf("Poll() status = %s, want %s", got.Status, tt.want)
			}
		})
	}
}

func TestWalletStatusMapping(t *testing.T) {
	tests := []struct {
		native string
		want   models.TransactionStatus
	}{
		{"CAPTURED", models.StatusCompleted},
		{"DECLINED", models.StatusFailed},
		{"AWAITING_USER", models.StatusPending},
	}

	for _, tt := range tests {
		if got := mapWalletStatus(tt.native); got != tt.want {
			t.Errorf("mapWalletStatus(%q) = %s, want %s", tt.native, got, tt.want)
		}
	}
}
