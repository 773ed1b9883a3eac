// internal/provider/momo/directory.go
// Mobile money provider directory: dialing prefixes, native status
// vocabularies and rail characteristics, shared by validation and dispatch.
package momo

import (
	"strings"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

// Provider describes one mobile money network.
type Provider struct {
	Name        string
	CountryCode string // E.164 dialing prefix, no leading +
	Country     string // ISO 3166-1 alpha-2
	Currency    string
	Slow        bool // carrier-side confirmation, gets the long deadline
	StatusVocab map[string]models.TransactionStatus
}

var directory = map[string]Provider{
	"MPESA": {
		Name: "MPESA", CountryCode: "254", Country: "KE", Currency: "KES", Slow: true,
		StatusVocab: map[string]models.TransactionStatus{
			"0":         models.StatusCompleted,
			"SUCCESS":   models.StatusCompleted,
			"1032":      models.StatusFailed, // cancelled by user
			"1037":      models.StatusTimeout,
			"FAILED":    models.StatusFailed,
			"QUEUED":    models.StatusPending,
			"CANCELLED": models.StatusFailed,
		},
	},
	"MTN_MOMO": {
		Name: "MTN_MOMO", CountryCode: "256", Country: "UG", Currency: "UGX", Slow: true,
		StatusVocab: map[string]models.TransactionStatus{
			"SUCCESSFUL": models.StatusCompleted,
			"FAILED":     models.StatusFailed,
			"PENDING":    models.StatusPending,
			"TIMEOUT":    models.StatusTimeout,
			"REJECTED":   models.StatusRejected,
		},
	},
	"AIRTEL_MONEY": {
		Name: "AIRTEL_MONEY", CountryCode: "255", Country: "TZ", Currency: "TZS", Slow: true,
		StatusVocab: map[string]models.TransactionStatus{
			"TS":  models.StatusCompleted,
			"TF":  models.StatusFailed,
			"TA":  models.StatusPending, // ambiguous, awaiting confirmation
			"TIP": models.StatusPending,
		},
	},
	"TIGO_PESA": {
		Name: "TIGO_PESA", CountryCode: "255", Country: "TZ", Currency: "TZS", Slow: true,
		StatusVocab: map[string]models.TransactionStatus{
			"COMPLETED": models.StatusCompleted,
			"FAILED":    models.StatusFailed,
			"PENDING":   models.StatusPending,
		},
	},
	"VODAFONE_CASH": {
		Name: "VODAFONE_CASH", CountryCode: "233", Country: "GH", Currency: "GHS", Slow: true,
		StatusVocab: map[string]models.TransactionStatus{
			"000":     models.StatusCompleted,
			"101":     models.StatusFailed,
			"PENDING": models.StatusPending,
			"EXPIRED": models.StatusExpired,
		},
	},
	"ORANGE_MONEY": {
		Name: "ORANGE_MONEY", CountryCode: "221", Country: "SN", Currency: "XOF", Slow: true,
		StatusVocab: map[string]models.TransactionStatus{
			"SUCCESS":   models.StatusCompleted,
			"FAILURE":   models.StatusFailed,
			"INITIATED": models.StatusPending,
			"EXPIRED":   models.StatusExpired,
		},
	},
	"WAVE": {
		Name: "WAVE", CountryCode: "221", Country: "SN", Currency: "XOF",
		StatusVocab: map[string]models.TransactionStatus{
			"complete":   models.StatusCompleted,
			"processing": models.StatusPending,
			"cancelled":  models.StatusFailed,
		},
	},
	"MOOV_MONEY": {
		Name: "MOOV_MONEY", CountryCode: "229", Country: "BJ", Currency: "XOF", Slow: true,
		StatusVocab: map[string]models.TransactionStatus{
			"0":       models.StatusCompleted,
			"4":       models.StatusFailed,
			"PENDING": models.StatusPending,
		},
	},
	"EVC_PLUS": {
		Name: "EVC_PLUS", CountryCode: "252", Country: "SO", Currency: "USD",
		StatusVocab: map[string]models.TransactionStatus{
			"2001": models.StatusCompleted,
			"5310": models.StatusFailed,
		},
	},
	"CHAPA": {
		Name: "CHAPA", CountryCode: "251", Country: "ET", Currency: "ETB",
		StatusVocab: map[string]models.TransactionStatus{
			"success": models.StatusCompleted,
			"failed":  models.StatusFailed,
			"pending": models.StatusPending,
		},
	},
	"PAYSTACK_MOMO": {
		Name: "PAYSTACK_MOMO", CountryCode: "233", Country: "GH", Currency: "GHS",
		StatusVocab: map[string]models.TransactionStatus{
			"success":   models.StatusCompleted,
			"failed":    models.StatusFailed,
			"ongoing":   models.StatusPending,
			"abandoned": models.StatusExpired,
		},
	},
	"FLUTTERWAVE_MOMO": {
		Name: "FLUTTERWAVE_MOMO", CountryCode: "234", Country: "NG", Currency: "NGN",
		StatusVocab: map[string]models.TransactionStatus{
			"successful": models.StatusCompleted,
			"failed":     models.StatusFailed,
			"pending":    models.StatusPending,
		},
	},
}

// Lookup returns the provider entry for a (case-insensitive) name.
func Lookup(name string) (Provider, bool) {
	p, ok := directory[strings.ToUpper(name)]
	return p, ok
}

func KnownProvider(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Providers returns every known provider name.
func Providers() []string {
	names := make([]string, 0, len(directory))
	for name := range directory {
		names = append(names, name)
	}
	return names
}

// MapStatus maps a native provider status onto the shared status set.
// Unknown native statuses map to PENDING, never to COMPLETED or FAILED,
// to avoid false settlement triggers.
func (p Provider) MapStatus(native string) models.TransactionStatus {
	if status, ok := p.StatusVocab[native]; ok {
		return status
	}
	return models.StatusPending
}

// NormalizeMSISDN converts a subscriber number to E.164 for the given
// provider. Leading zeros are stripped before the country code is prefixed.
func (p Provider) NormalizeMSISDN(number string) string {
	n := strings.TrimSpace(number)
	if strings.HasPrefix(n, "+") {
		return n
	}
	if strings.HasPrefix(n, p.CountryCode) {
		return "+" + n
	}
	n = strings.TrimLeft(n, "0")
	return "+" + p.CountryCode + n
}
