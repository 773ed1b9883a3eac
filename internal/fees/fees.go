// internal/fees/fees.go
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

type rate struct {
	base decimal.Decimal // flat component, in request currency units
	pct  decimal.Decimal // percentage component, e.g. 0.029 for 2.9%
}

// Calculator computes fee breakdowns as a deterministic, pure function of
// its inputs. Fees are always computed before provider execution so that
// failed-but-attempted transactions retain a quote for reconciliation.
type Calculator struct {
	rates             map[models.PaymentMethod]rate
	tierDiscounts     map[models.MerchantTier]decimal.Decimal
	domesticMarkdown  decimal.Decimal
	domesticCountries map[string]bool
}

func NewCalculator() *Calculator {
	return &Calculator{
		rates: map[models.PaymentMethod]rate{
			models.MethodCard:         {base: dec("0.30"), pct: dec("0.029")},
			models.MethodBankTransfer: {base: dec("0.25"), pct: dec("0.008")},
			models.MethodMobileMoney:  {base: dec("0.00"), pct: dec("0.015")},
			models.MethodCrypto:       {base: dec("0.00"), pct: dec("0.010")},
			models.MethodUPI:          {base: dec("0.00"), pct: dec("0.005")},
			models.MethodAlipay:       {base: dec("0.10"), pct: dec("0.022")},
			models.MethodWeChat:       {base: dec("0.10"), pct: dec("0.022")},
			models.MethodApplePay:     {base: dec("0.30"), pct: dec("0.029")},
			models.MethodGooglePay:    {base: dec("0.30"), pct: dec("0.029")},
		},
		tierDiscounts: map[models.MerchantTier]decimal.Decimal{
			models.TierStandard: dec("1.00"),
			models.TierSilver:   dec("0.90"),
			models.TierGold:     dec("0.80"),
			models.TierPlatinum: dec("0.70"),
		},
		// Local-acquiring markets get a reduced percentage component.
		domesticMarkdown:  dec("0.85"),
		domesticCountries: map[string]bool{"US": true, "GB": true, "KE": true, "NG": true, "GH": true},
	}
}

// Calculate returns the fee breakdown for the given inputs. Identical
// inputs always yield an identical breakdown.
func (c *Calculator) Calculate(amount decimal.Decimal, currency string, method models.PaymentMethod, country string, tier models.MerchantTier) models.FeeBreakdown {
	r, ok := c.rates[method]
	if !ok {
		r = c.rates[models.MethodCard]
	}

	pct := r.pct
	if c.domesticCountries[country] {
		pct = pct.Mul(c.domesticMarkdown)
	}

	discount, ok := c.tierDiscounts[tier]
	if !ok {
		discount = c.tierDiscounts[models.TierStandard]
	}

	base := r.base.Mul(discount).Round(2)
	percentage := amount.Mul(pct).Mul(discount).Round(2)

	return models.FeeBreakdown{
		BaseFee:       base,
		PercentageFee: percentage,
		TotalFee:      base.Add(percentage),
		Currency:      currency,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
