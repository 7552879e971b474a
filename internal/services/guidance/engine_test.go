package guidance

import (
	"math"
	"testing"

	"RegimeDash/internal/domain/models"
	"RegimeDash/internal/services/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioA() *models.GuidancePayload {
	return &models.GuidancePayload{
		Regime:       models.RegimeStable,
		StartDate:    models.MustParseDate("2024-11-05"),
		DurationDays: 12,
		Metrics: &models.RawMetrics{
			AverageReturn: 0.0008,
			Volatility:    0.01,
			MaxDrawdown:   -0.05,
		},
		EarlyWarningProb:   10,
		RecentRegimeChange: false,
	}
}

func newEngine() *Engine {
	return NewEngine(rules.NewTable())
}

func TestDeriveScenarioA(t *testing.T) {
	v, err := newEngine().Derive(scenarioA(), models.PersonaBalanced)
	require.NoError(t, err)

	assert.InDelta(t, 0.2016, v.AnnualizedTrend, 1e-9)
	assert.InDelta(t, 0.158745, v.AnnualizedVolatility, 1e-6)
	assert.Equal(t, models.SeverityLow, v.Severity)
	assert.Equal(t, models.Allocation{Equity: 70, Debt: 20, Cash: 10}, v.Allocation)
	assert.Equal(t, "Capital growth with controlled risk", v.Objective)
	assert.Equal(t, 252, v.TradingDaysPerYear)
	assert.False(t, v.RecentRegimeChange)
	assert.Equal(t, "2024-11-05", v.StartDate.String())
}

func TestDeriveScenarioB(t *testing.T) {
	p := scenarioA()
	p.Regime = models.RegimeCrisis
	p.EarlyWarningProb = 82

	v, err := newEngine().Derive(p, models.PersonaBalanced)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, v.Severity)
	assert.Equal(t, models.Allocation{Equity: 10, Debt: 50, Cash: 40}, v.Allocation)
	assert.Equal(t, "Capital protection", v.Objective)
}

func TestAnnualizationProperty(t *testing.T) {
	e := newEngine()
	for _, tc := range []struct{ a, v float64 }{
		{0, 0}, {0.001, 0.02}, {-0.003, 0.035}, {0.0123, 0.0001},
	} {
		p := scenarioA()
		p.Metrics.AverageReturn = tc.a
		p.Metrics.Volatility = tc.v
		view, err := e.Derive(p, models.PersonaBalanced)
		require.NoError(t, err)
		assert.InDelta(t, tc.a*252, view.AnnualizedTrend, 1e-12)
		assert.InDelta(t, tc.v*math.Sqrt(252), view.AnnualizedVolatility, 1e-12)
	}
}

func TestNegativeTrendPassesThrough(t *testing.T) {
	p := scenarioA()
	p.Metrics.AverageReturn = -0.002
	v, err := newEngine().Derive(p, models.PersonaBalanced)
	require.NoError(t, err)
	assert.InDelta(t, -0.504, v.AnnualizedTrend, 1e-9)
}

func TestCustomTradingDays(t *testing.T) {
	e := NewEngine(rules.NewTable(), WithTradingDaysPerYear(365))
	v, err := e.Derive(scenarioA(), models.PersonaBalanced)
	require.NoError(t, err)
	assert.InDelta(t, 0.0008*365, v.AnnualizedTrend, 1e-12)
	assert.Equal(t, 365, v.TradingDaysPerYear)

	assert.Equal(t, 252, NewEngine(rules.NewTable(), WithTradingDaysPerYear(0)).TradingDaysPerYear())
}

func TestSeverityTierBounds(t *testing.T) {
	cases := map[float64]models.Severity{
		0:     models.SeverityLow,
		39.99: models.SeverityLow,
		40:    models.SeverityMedium,
		74.99: models.SeverityMedium,
		75:    models.SeverityHigh,
		100:   models.SeverityHigh,
	}
	for prob, want := range cases {
		assert.Equal(t, want, SeverityFor(prob), "prob=%v", prob)
	}
}

func TestProbabilityIsClamped(t *testing.T) {
	e := newEngine()

	p := scenarioA()
	p.EarlyWarningProb = 140
	v, err := e.Derive(p, models.PersonaBalanced)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v.EarlyWarningProb)
	assert.Equal(t, models.SeverityHigh, v.Severity)

	p.EarlyWarningProb = -3
	v, err = e.Derive(p, models.PersonaBalanced)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.EarlyWarningProb)
}

func TestRecentRegimeChangeIsNotRederived(t *testing.T) {
	p := scenarioA()
	p.DurationDays = 400
	p.RecentRegimeChange = true
	v, err := newEngine().Derive(p, models.PersonaBalanced)
	require.NoError(t, err)
	assert.True(t, v.RecentRegimeChange)
}

func TestDeriveMalformed(t *testing.T) {
	cases := map[string]func(p *models.GuidancePayload){
		"missing metrics":   func(p *models.GuidancePayload) { p.Metrics = nil },
		"nan return":        func(p *models.GuidancePayload) { p.Metrics.AverageReturn = math.NaN() },
		"inf volatility":    func(p *models.GuidancePayload) { p.Metrics.Volatility = math.Inf(1) },
		"nan probability":   func(p *models.GuidancePayload) { p.EarlyWarningProb = math.NaN() },
		"positive drawdown": func(p *models.GuidancePayload) { p.Metrics.MaxDrawdown = 0.1 },
		"negative vol":      func(p *models.GuidancePayload) { p.Metrics.Volatility = -0.01 },
		"negative duration": func(p *models.GuidancePayload) { p.DurationDays = -1 },
		"unknown regime":    func(p *models.GuidancePayload) { p.Regime = "Bubble" },
		"empty regime":      func(p *models.GuidancePayload) { p.Regime = "" },
	}
	e := newEngine()
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := scenarioA()
			mutate(p)
			v, err := e.Derive(p, models.PersonaBalanced)
			assert.Nil(t, v)
			assert.ErrorIs(t, err, models.ErrMalformedPayload)
		})
	}

	v, err := e.Derive(nil, models.PersonaBalanced)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, models.ErrMalformedPayload)
}

func TestUnknownRegimeKeepsCause(t *testing.T) {
	p := scenarioA()
	p.Regime = "Bubble"
	_, err := newEngine().Derive(p, models.PersonaBalanced)
	assert.ErrorIs(t, err, models.ErrUnknownRegime)
}

func TestViewDoesNotAliasRuleTable(t *testing.T) {
	table := rules.NewTable()
	e := NewEngine(table)
	v, err := e.Derive(scenarioA(), models.PersonaBalanced)
	require.NoError(t, err)
	v.Actions[0] = "mutated"

	r, err := table.Lookup(models.RegimeStable)
	require.NoError(t, err)
	assert.Equal(t, "Maintain equity exposure", r.Actions[0])
}

func TestTiltAllocation(t *testing.T) {
	stable := models.Allocation{Equity: 70, Debt: 20, Cash: 10}
	crisis := models.Allocation{Equity: 10, Debt: 50, Cash: 40}

	cases := []struct {
		name    string
		in      models.Allocation
		persona models.Persona
		want    models.Allocation
	}{
		{"balanced", stable, models.PersonaBalanced, stable},
		{"conservative stable", stable, models.PersonaConservative, models.Allocation{Equity: 60, Debt: 25, Cash: 15}},
		{"aggressive stable", stable, models.PersonaAggressive, models.Allocation{Equity: 80, Debt: 15, Cash: 5}},
		{"conservative crisis", crisis, models.PersonaConservative, models.Allocation{Equity: 0, Debt: 55, Cash: 45}},
		{"conservative low equity", models.Allocation{Equity: 5, Debt: 50, Cash: 45}, models.PersonaConservative, models.Allocation{Equity: 0, Debt: 52, Cash: 48}},
		{"aggressive no cash", models.Allocation{Equity: 60, Debt: 38, Cash: 2}, models.PersonaAggressive, models.Allocation{Equity: 67, Debt: 33, Cash: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TiltAllocation(tc.in, tc.persona)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.NoError(t, got.Validate())
		})
	}

	_, err := TiltAllocation(stable, "Reckless")
	assert.Error(t, err)
}

func TestClassifyRisk(t *testing.T) {
	r := ClassifyRisk(models.RawMetrics{Volatility: 0.005, MaxDrawdown: -0.01}, 5)
	assert.Equal(t, models.RiskProfile{VolatilityRisk: "Low", DrawdownSeverity: "Mild", RegimeConfidence: "Low"}, r)

	r = ClassifyRisk(models.RawMetrics{Volatility: 0.015, MaxDrawdown: -0.10}, 30)
	assert.Equal(t, models.RiskProfile{VolatilityRisk: "Medium", DrawdownSeverity: "Moderate", RegimeConfidence: "Medium"}, r)

	r = ClassifyRisk(models.RawMetrics{Volatility: 0.03, MaxDrawdown: -0.30}, 90)
	assert.Equal(t, models.RiskProfile{VolatilityRisk: "High", DrawdownSeverity: "Severe", RegimeConfidence: "High"}, r)
}
