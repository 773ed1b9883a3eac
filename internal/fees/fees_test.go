package fees

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

func TestCalculateDeterministic(t *testing.T) {
	c := NewCalculator()
	amount := decimal.RequireFromString("123.45")

	first := c.Calculate(amount, "USD", models.MethodCard, "US", models.TierGold)
	second := c.Calculate(amount, "USD", models.MethodCard, "US", models.TierGold)

	if !first.BaseFee.Equal(second.BaseFee) ||
		!first.PercentageFee.Equal(second.PercentageFee) ||
		!first.TotalFee.Equal(second.TotalFee) ||
		first.Currency != second.Currency {
		t.Errorf("identical inputs produced different breakdowns: %+v vs %+v", first, second)
	}
}

func TestCalculateTotalIsSum(t *testing.T) {
	c := NewCalculator()

	for _, method := range models.KnownMethods {
		breakdown := c.Calculate(decimal.RequireFromString("250.00"), "KES", method, "KE", models.TierStandard)
		if !breakdown.TotalFee.Equal(breakdown.BaseFee.Add(breakdown.PercentageFee)) {
			t.Errorf("%s: total %s != base %s + percentage %s",
				method, breakdown.TotalFee, breakdown.BaseFee, breakdown.PercentageFee)
		}
	}
}

func TestCalculateCardFeePositive(t *testing.T) {
	c := NewCalculator()

	breakdown := c.Calculate(decimal.RequireFromString("100.00"), "USD", models.MethodCard, "US", models.TierStandard)
	if !breakdown.TotalFee.GreaterThan(decimal.Zero) {
		t.Errorf("card fee on 100.00 USD must be positive, got %s", breakdown.TotalFee)
	}
	if breakdown.Currency != "USD" {
		t.Errorf("fee currency = %s, want USD", breakdown.Currency)
	}
}

func TestTierDiscountOrdering(t *testing.T) {
	c := NewCalculator()
	amount := decimal.RequireFromString("1000.00")

	standard := c.Calculate(amount, "USD", models.MethodCard, "FR", models.TierStandard)
	platinum := c.Calculate(amount, "USD", models.MethodCard, "FR", models.TierPlatinum)

	if !platinum.TotalFee.LessThan(standard.TotalFee) {
		t.Errorf("platinum fee %s should be below standard fee %s", platinum.TotalFee, standard.TotalFee)
	}
}

func TestDomesticMarkdown(t *testing.T) {
	c := NewCalculator()
	amount := decimal.RequireFromString("1000.00")

	domestic := c.Calculate(amount, "USD", models.MethodCard, "US", models.TierStandard)
	foreign := c.Calculate(amount, "USD", models.MethodCard, "FR", models.TierStandard)

	if !domestic.PercentageFee.LessThan(foreign.PercentageFee) {
		t.Errorf("domestic percentage fee %s should be below foreign %s", domestic.PercentageFee, foreign.PercentageFee)
	}
}

func TestUnknownTierFallsBackToStandard(t *testing.T) {
	c := NewCalculator()
	amount := decimal.RequireFromString("100.00")

	unknown := c.Calculate(amount, "USD", models.MethodCard, "US", "DIAMOND")
	standard := c.Calculate(amount, "USD", models.MethodCard, "US", models.TierStandard)

	if !unknown.TotalFee.Equal(standard.TotalFee) {
		t.Errorf("unknown tier fee %s != standard fee %s", unknown.TotalFee, standard.TotalFee)
	}
}
