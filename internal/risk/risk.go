// internal/risk/risk.go
// Pre-transaction risk screening. The rule engine here is a reference
// implementation; deployments plug real scoring models in behind Assessor.
package risk

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/models"
)

// Assessor produces a risk score and fraud verdict for a request.
// Called exactly once per transaction, before any provider contact.
type Assessor interface {
	Assess(ctx context.Context, req *models.PaymentRequest) models.RiskAssessment
}

// HistoryProvider supplies customer history signals. Optional; a nil
// provider means every customer looks new.
type HistoryProvider interface {
	HasHistory(ctx context.Context, customerRef string) bool
	RecentTransactionCount(ctx context.Context, customerRef string) int
}

const DefaultThreshold = 80

type ruleFunc func(ctx context.Context, req *models.PaymentRequest, a *models.RiskAssessment)

// RuleEngine accumulates weighted signals into a 0-100 score. Verdict is
// score > threshold.
type RuleEngine struct {
	threshold int
	history   HistoryProvider
	rules     []ruleFunc
	logger    *zap.Logger

	highRiskCountries map[string]bool
	elevatedAmount    decimal.Decimal
	largeAmount       decimal.Decimal
}

func NewRuleEngine(threshold int, history HistoryProvider, logger *zap.Logger) *RuleEngine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	e := &RuleEngine{
		threshold:         threshold,
		history:           history,
		logger:            logger,
		highRiskCountries: map[string]bool{"KP": true, "IR": true, "SY": true, "CU": true},
		elevatedAmount:    decimal.NewFromInt(5000),
		largeAmount:       decimal.NewFromInt(10000),
	}
	e.rules = []ruleFunc{
		e.checkAmountThreshold,
		e.checkHighRiskCountry,
		e.checkCountryMismatch,
		e.checkCustomerHistory,
		e.checkVelocity,
	}
	return e
}

func (e *RuleEngine) Assess(ctx context.Context, req *models.PaymentRequest) models.RiskAssessment {
	assessment := models.RiskAssessment{}

	for _, rule := range e.rules {
		rule(ctx, req, &assessment)
	}

	if assessment.Score > 100 {
		assessment.Score = 100
	}
	if assessment.Score > e.threshold {
		assessment.Fraudulent = true
		assessment.ReasonCode = "FRAUD_DETECTED"
	}

	e.logger.Debug("risk assessment complete",
		zap.String("customer_ref", req.CustomerRef),
		zap.Int("score", assessment.Score),
		zap.Bool("fraudulent", assessment.Fraudulent),
		zap.Strings("flags", assessment.Flags))

	return assessment
}

func (e *RuleEngine) checkAmountThreshold(_ context.Context, req *models.PaymentRequest, a *models.RiskAssessment) {
	switch {
	case req.Amount.GreaterThan(e.largeAmount):
		a.Score += 30
		a.Flags = append(a.Flags, "large_amount")
	case req.Amount.GreaterThan(e.elevatedAmount):
		a.Score += 15
		a.Flags = append(a.Flags, "elevated_amount")
	}
}

func (e *RuleEngine) checkHighRiskCountry(_ context.Context, req *models.PaymentRequest, a *models.RiskAssessment) {
	if e.highRiskCountries[req.Country] || e.highRiskCountries[req.BillingCountry] {
		a.Score += 35
		a.Flags = append(a.Flags, "high_risk_country")
	}
}

func (e *RuleEngine) checkCountryMismatch(_ context.Context, req *models.PaymentRequest, a *models.RiskAssessment) {
	if req.BillingCountry != "" && req.ShippingCountry != "" && req.BillingCountry != req.ShippingCountry {
		a.Score += 25
		a.Flags = append(a.Flags, "country_mismatch")
	}
}

func (e *RuleEngine) checkCustomerHistory(ctx context.Context, req *models.PaymentRequest, a *models.RiskAssessment) {
	if e.history == nil || req.CustomerRef == "" {
		return
	}
	if !e.history.HasHistory(ctx, req.CustomerRef) {
		a.Score += 20
		a.Flags = append(a.Flags, "no_customer_history")
	}
}

func (e *RuleEngine) checkVelocity(ctx context.Context, req *models.PaymentRequest, a *models.RiskAssessment) {
	if e.history == nil || req.CustomerRef == "" {
		return
	}
	count := e.history.RecentTransactionCount(ctx, req.CustomerRef)
	switch {
	case count > 10:
		a.Score += 40
		a.Flags = append(a.Flags, "high_velocity")
	case count > 5:
		a.Score += 20
		a.Flags = append(a.Flags, "moderate_velocity")
	}
}

// Static is a fixed-score assessor for tests and wiring defaults.
type Static struct {
	Score int
}

func (s Static) Assess(_ context.Context, _ *models.PaymentRequest) models.RiskAssessment {
	a := models.RiskAssessment{Score: s.Score}
	if a.Score > DefaultThreshold {
		a.Fraudulent = true
		a.ReasonCode = "FRAUD_DETECTED"
	}
	return a
}
