// internal/validator/validator.go
package validator

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/provider/momo"
)

var (
	cardNumberPattern = regexp.MustCompile(`^[0-9]{13,19}$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	ibanPattern       = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
	accountPattern    = regexp.MustCompile(`^[0-9]{6,17}$`)
	routingPattern    = regexp.MustCompile(`^[0-9]{9}$`)
	upiPattern        = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,}@[a-zA-Z]{2,}$`)
)

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validator structurally validates payment requests. Pure, no I/O.
type Validator struct {
	now func() time.Time
}

func New() *Validator {
	return &Validator{now: time.Now}
}

// Validate accumulates every violated rule. Missing core fields or an
// unrecognized method is the only case returning a single terminal error.
func (v *Validator) Validate(req *models.PaymentRequest) ValidationResult {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return invalid("amount must be greater than zero")
	}
	if len(req.Currency) != 3 {
		return invalid("currency must be a 3-letter ISO 4217 code")
	}
	if !req.Method.Known() {
		return invalid(fmt.Sprintf("unsupported payment method: %s", req.Method))
	}

	var errs []string
	switch req.Method {
	case models.MethodCard:
		errs = v.validateCard(req.Card)
	case models.MethodMobileMoney:
		errs = v.validateMobileMoney(req.MobileMoney)
	case models.MethodBankTransfer:
		errs = v.validateBank(req.Bank)
	case models.MethodCrypto:
		errs = v.validateCrypto(req.Crypto, req.Amount)
	default:
		errs = v.validateWallet(req.Wallet)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (v *Validator) validateCard(card *models.CardDetail) []string {
	if card == nil {
		return []string{"card details are required for CARD payments"}
	}

	var errs []string
	if !cardNumberPattern.MatchString(card.Number) {
		errs = append(errs, "card number must be 13-19 digits")
	} else if !LuhnValid(card.Number) {
		errs = append(errs, "card number failed checksum validation")
	}

	if card.ExpMonth < 1 || card.ExpMonth > 12 {
		errs = append(errs, "card expiry month must be between 1 and 12")
	} else {
		now := v.now()
		if card.ExpYear < now.Year() ||
			(card.ExpYear == now.Year() && card.ExpMonth < int(now.Month())) {
			errs = append(errs, "card is expired")
		}
	}

	cvvLen := 3
	if DetectCardNetwork(card.Number) == "amex" {
		cvvLen = 4
	}
	if len(card.CVV) != cvvLen {
		errs = append(errs, fmt.Sprintf("cvv must be %d digits", cvvLen))
	}

	return errs
}

func (v *Validator) validateMobileMoney(mm *models.MobileMoneyDetail) []string {
	if mm == nil {
		return []string{"mobile money details are required for MOBILE_MONEY payments"}
	}

	var errs []string
	if !momo.KnownProvider(mm.Provider) {
		errs = append(errs, fmt.Sprintf("unknown mobile money provider: %s", mm.Provider))
	}
	if !phonePattern.MatchString(mm.PhoneNumber) {
		errs = append(errs, "phone number must be 10-15 digits with optional leading +")
	}
	return errs
}

// validateBank requires exactly one of IBAN, domestic account+routing, or
// a UPI-shaped id to validate against its own pattern.
func (v *Validator) validateBank(bank *models.BankDetail) []string {
	if bank == nil {
		return []string{"bank details are required for BANK_TRANSFER payments"}
	}

	var errs []string
	matched := 0
	if bank.IBAN != "" {
		if ibanPattern.MatchString(bank.IBAN) {
			matched++
		} else {
			errs = append(errs, "iban is malformed")
		}
	}
	if bank.AccountNumber != "" || bank.RoutingNumber != "" {
		if accountPattern.MatchString(bank.AccountNumber) && routingPattern.MatchString(bank.RoutingNumber) {
			matched++
		} else {
			errs = append(errs, "account number must be 6-17 digits and routing number 9 digits")
		}
	}
	if bank.UPIID != "" {
		if upiPattern.MatchString(bank.UPIID) {
			matched++
		} else {
			errs = append(errs, "upi id is malformed")
		}
	}

	if matched != 1 {
		errs = append(errs, "exactly one of iban, account+routing, or upi id must be provided")
	}
	return errs
}

func (v *Validator) validateCrypto(c *models.CryptoDetail, fiatAmount decimal.Decimal) []string {
	if c == nil {
		return []string{"crypto details are required for CRYPTO payments"}
	}

	var errs []string
	if c.Address == "" {
		errs = append(errs, "crypto destination address is required")
	}
	if c.CryptoAmount.LessThanOrEqual(decimal.Zero) && fiatAmount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "either a crypto amount or a fiat amount to convert is required")
	}
	return errs
}

func (v *Validator) validateWallet(w *models.WalletDetail) []string {
	if w == nil {
		return []string{"wallet details are required for wallet payments"}
	}
	if w.Token == "" {
		return []string{"wallet token is required"}
	}
	return nil
}

func invalid(msg string) ValidationResult {
	return ValidationResult{Valid: false, Errors: []string{msg}}
}

// LuhnValid validates a card number using the Luhn algorithm.
func LuhnValid(cardNumber string) bool {
	if cardNumber == "" {
		return false
	}

	var sum int
	parity := len(cardNumber) % 2
	for i, digit := range cardNumber {
		d := int(digit - '0')
		if d < 0 || d > 9 {
			return false
		}
		if i%2 == parity {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}

	return sum%10 == 0
}

// DetectCardNetwork detects the card network based on IIN prefix ranges.
func DetectCardNetwork(cardNumber string) string {
	if len(cardNumber) < 2 {
		return ""
	}

	prefix := cardNumber[:2]

	switch {
	case prefix == "34" || prefix == "37":
		return "amex"
	case prefix >= "40" && prefix <= "49":
		return "visa"
	case prefix >= "51" && prefix <= "55":
		return "mastercard"
	case prefix >= "22" && prefix <= "27":
		return "mastercard"
	case prefix >= "60" && prefix <= "65":
		return "discover"
	default:
		return ""
	}
}
