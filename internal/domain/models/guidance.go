package models

import "fmt"

// RawMetrics are the daily statistics the backend computes for the selected day.
type RawMetrics struct {
	AverageReturn float64 `json:"average_return"`
	Volatility    float64 `json:"volatility" validate:"gte=0"`
	MaxDrawdown   float64 `json:"max_drawdown" validate:"lte=0"`
}

// GuidancePayload is the backend response of GET /investor-guidance.
// RecentRegimeChange is decided by the backend and taken as-is.
type GuidancePayload struct {
	Regime             RegimeLabel `json:"regime" validate:"required"`
	StartDate          Date        `json:"start_date"`
	DurationDays       int         `json:"duration_days" validate:"gte=0"`
	Metrics            *RawMetrics `json:"metrics" validate:"required"`
	EarlyWarningProb   float64     `json:"early_warning_prob"`
	RecentRegimeChange bool        `json:"recent_regime_change"`
}

// Severity is the early-warning tier.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Persona tilts the regime allocation toward or away from equity.
type Persona string

const (
	PersonaConservative Persona = "Conservative"
	PersonaBalanced     Persona = "Balanced"
	PersonaAggressive   Persona = "Aggressive"
)

// ParsePersona resolves a persona name; empty input yields Balanced.
func ParsePersona(s string) (Persona, error) {
	switch Persona(s) {
	case "":
		return PersonaBalanced, nil
	case PersonaConservative, PersonaBalanced, PersonaAggressive:
		return Persona(s), nil
	default:
		return "", fmt.Errorf("unknown persona %q", s)
	}
}

// Allocation is an equity/debt/cash split in whole percentage points.
type Allocation struct {
	Equity int `json:"equity"`
	Debt   int `json:"debt"`
	Cash   int `json:"cash"`
}

// Sum returns the total weight.
func (a Allocation) Sum() int { return a.Equity + a.Debt + a.Cash }

// Validate checks non-negative weights summing to 100.
func (a Allocation) Validate() error {
	if a.Equity < 0 || a.Debt < 0 || a.Cash < 0 {
		return fmt.Errorf("allocation weights must be non-negative: %+v", a)
	}
	if a.Sum() != 100 {
		return fmt.Errorf("allocation weights sum to %d, want 100", a.Sum())
	}
	return nil
}

// AllocationNotes explain each sleeve of the allocation card.
type AllocationNotes struct {
	Equity string `json:"equity"`
	Debt   string `json:"debt"`
	Cash   string `json:"cash"`
}

// Theme is the visual identity of a regime.
type Theme struct {
	DisplayName string `json:"display_name"`
	Emoji       string `json:"emoji"`
	LineColor   Color  `json:"line_color"`
	BadgeBG     Color  `json:"badge_bg"`
	BadgeText   Color  `json:"badge_text"`
	BadgeBorder Color  `json:"badge_border"`
}

// RegimeRule is the static guidance attached to one regime.
type RegimeRule struct {
	Regime            RegimeLabel     `json:"regime"`
	Theme             Theme           `json:"theme"`
	Objective         string          `json:"objective"`
	DominantRisk      string          `json:"dominant_risk"`
	RiskFocus         string          `json:"risk_focus"`
	Actions           []string        `json:"actions"`
	InvestmentAvenues []string        `json:"investment_avenues"`
	Allocation        Allocation      `json:"allocation"`
	AllocationNotes   AllocationNotes `json:"allocation_notes"`
}

// Clone returns a deep copy so callers cannot alias table storage.
func (r RegimeRule) Clone() RegimeRule {
	r.Actions = append([]string(nil), r.Actions...)
	r.InvestmentAvenues = append([]string(nil), r.InvestmentAvenues...)
	return r
}

// RiskProfile is a coarse reading of the raw statistics.
type RiskProfile struct {
	VolatilityRisk   string `json:"volatility_risk"`   // Low | Medium | High
	DrawdownSeverity string `json:"drawdown_severity"` // Mild | Moderate | Severe
	RegimeConfidence string `json:"regime_confidence"` // Low | Medium | High
}

// GuidanceView is the fully derived guidance card. Built in one step, never mutated.
type GuidanceView struct {
	Regime               RegimeLabel     `json:"regime"`
	Theme                Theme           `json:"theme"`
	StartDate            Date            `json:"start_date"`
	DurationDays         int             `json:"duration_days"`
	RecentRegimeChange   bool            `json:"recent_regime_change"`
	Metrics              RawMetrics      `json:"metrics"`
	TradingDaysPerYear   int             `json:"trading_days_per_year"`
	AnnualizedTrend      float64         `json:"annualized_trend"`
	AnnualizedVolatility float64         `json:"annualized_volatility"`
	EarlyWarningProb     float64         `json:"early_warning_prob"`
	Severity             Severity        `json:"severity"`
	Risk                 RiskProfile     `json:"risk_profile"`
	Persona              Persona         `json:"persona"`
	Objective            string          `json:"objective"`
	DominantRisk         string          `json:"dominant_risk"`
	RiskFocus            string          `json:"risk_focus"`
	Actions              []string        `json:"actions"`
	InvestmentAvenues    []string        `json:"investment_avenues"`
	Allocation           Allocation      `json:"allocation"`
	AllocationNotes      AllocationNotes `json:"allocation_notes"`
}
