package guidance

import (
	"fmt"
	"math"

	"RegimeDash/internal/domain/models"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTradingDaysPerYear = 252

	mediumThreshold = 40.0
	highThreshold   = 75.0
)

// RuleLookup resolves the static guidance for a regime.
type RuleLookup interface {
	Lookup(regime models.RegimeLabel) (models.RegimeRule, error)
}

// Engine turns a backend guidance payload into a GuidanceView. It holds no
// mutable state and may be shared between goroutines.
type Engine struct {
	rules       RuleLookup
	tradingDays int
	validate    *validator.Validate
}

// Option configures Engine.
type Option func(*Engine)

// WithTradingDaysPerYear overrides the annualization factor. Non-positive values are ignored.
func WithTradingDaysPerYear(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.tradingDays = n
		}
	}
}

// NewEngine creates a derivation engine backed by rules.
func NewEngine(rules RuleLookup, opts ...Option) *Engine {
	e := &Engine{
		rules:       rules,
		tradingDays: DefaultTradingDaysPerYear,
		validate:    validator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TradingDaysPerYear returns the annualization factor in use.
func (e *Engine) TradingDaysPerYear() int { return e.tradingDays }

// Derive validates payload and builds the full view in one step. Any failure
// wraps models.ErrMalformedPayload and no partial view is returned.
func (e *Engine) Derive(payload *models.GuidancePayload, persona models.Persona) (*models.GuidanceView, error) {
	if err := e.check(payload); err != nil {
		return nil, err
	}

	rule, err := e.rules.Lookup(payload.Regime)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrMalformedPayload, err)
	}

	alloc, err := TiltAllocation(rule.Allocation, persona)
	if err != nil {
		return nil, err
	}

	m := *payload.Metrics
	trend, vol := Annualize(m, e.tradingDays)
	prob := ClampProbability(payload.EarlyWarningProb)

	return &models.GuidanceView{
		Regime:               payload.Regime,
		Theme:                rule.Theme,
		StartDate:            payload.StartDate,
		DurationDays:         payload.DurationDays,
		RecentRegimeChange:   payload.RecentRegimeChange,
		Metrics:              m,
		TradingDaysPerYear:   e.tradingDays,
		AnnualizedTrend:      trend,
		AnnualizedVolatility: vol,
		EarlyWarningProb:     prob,
		Severity:             SeverityFor(prob),
		Risk:                 ClassifyRisk(m, payload.DurationDays),
		Persona:              persona,
		Objective:            rule.Objective,
		DominantRisk:         rule.DominantRisk,
		RiskFocus:            rule.RiskFocus,
		Actions:              rule.Actions,
		InvestmentAvenues:    rule.InvestmentAvenues,
		Allocation:           alloc,
		AllocationNotes:      rule.AllocationNotes,
	}, nil
}

func (e *Engine) check(p *models.GuidancePayload) error {
	if p == nil {
		return fmt.Errorf("%w: empty guidance payload", models.ErrMalformedPayload)
	}
	if p.Metrics == nil {
		return fmt.Errorf("%w: metrics missing", models.ErrMalformedPayload)
	}
	for name, v := range map[string]float64{
		"average_return":     p.Metrics.AverageReturn,
		"volatility":         p.Metrics.Volatility,
		"max_drawdown":       p.Metrics.MaxDrawdown,
		"early_warning_prob": p.EarlyWarningProb,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", models.ErrMalformedPayload, name)
		}
	}
	if !p.Regime.Valid() {
		return fmt.Errorf("%w: %w: %q", models.ErrMalformedPayload, models.ErrUnknownRegime, p.Regime)
	}
	if err := e.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	return nil
}

// Annualize scales daily return linearly and daily volatility by the square root of days.
// Negative trends pass through unchanged.
func Annualize(m models.RawMetrics, tradingDays int) (trend, vol float64) {
	return m.AverageReturn * float64(tradingDays), m.Volatility * math.Sqrt(float64(tradingDays))
}

// SeverityFor maps an early-warning probability to its tier. 40 is Medium, 75 is High.
func SeverityFor(prob float64) models.Severity {
	switch {
	case prob < mediumThreshold:
		return models.SeverityLow
	case prob < highThreshold:
		return models.SeverityMedium
	default:
		return models.SeverityHigh
	}
}

// ClampProbability pins prob into [0,100].
func ClampProbability(prob float64) float64 {
	return math.Min(100, math.Max(0, prob))
}

// ClassifyRisk reads daily volatility, drawdown depth and regime age.
func ClassifyRisk(m models.RawMetrics, durationDays int) models.RiskProfile {
	var r models.RiskProfile
	switch {
	case m.Volatility < 0.01:
		r.VolatilityRisk = "Low"
	case m.Volatility < 0.02:
		r.VolatilityRisk = "Medium"
	default:
		r.VolatilityRisk = "High"
	}
	switch {
	case m.MaxDrawdown > -0.05:
		r.DrawdownSeverity = "Mild"
	case m.MaxDrawdown > -0.15:
		r.DrawdownSeverity = "Moderate"
	default:
		r.DrawdownSeverity = "Severe"
	}
	switch {
	case durationDays < 20:
		r.RegimeConfidence = "Low"
	case durationDays < 60:
		r.RegimeConfidence = "Medium"
	default:
		r.RegimeConfidence = "High"
	}
	return r
}

// TiltAllocation shifts the regime allocation for persona. Weights stay
// non-negative and the total is preserved.
func TiltAllocation(a models.Allocation, persona models.Persona) (models.Allocation, error) {
	switch persona {
	case models.PersonaBalanced, "":
		return a, nil
	case models.PersonaConservative:
		moved := min(10, a.Equity)
		a.Equity -= moved
		a.Debt += moved / 2
		a.Cash += moved - moved/2
		return a, nil
	case models.PersonaAggressive:
		fromDebt := min(5, a.Debt)
		fromCash := min(5, a.Cash)
		a.Debt -= fromDebt
		a.Cash -= fromCash
		a.Equity += fromDebt + fromCash
		return a, nil
	default:
		return models.Allocation{}, fmt.Errorf("unknown persona %q", persona)
	}
}
