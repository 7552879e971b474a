package rules

import "RegimeDash/internal/domain/models"

const (
	noteEquityGrowth  = "Aggressive growth focus."
	noteEquityReduced = "Reduced to minimize drawdown risk."
	noteDebt          = "Stability and income generation."
	noteCash          = "Dry powder for opportunities."
)

func defaultRules() []models.RegimeRule {
	return []models.RegimeRule{
		{
			Regime: models.RegimeStable,
			Theme: models.Theme{
				DisplayName: "Stable Bull",
				Emoji:       "🟢",
				LineColor:   "#2e7d32",
				BadgeBG:     "#dcfce7",
				BadgeText:   "#166534",
				BadgeBorder: "#22c55e",
			},
			Objective:    "Capital growth with controlled risk",
			DominantRisk: "Overconfidence in prolonged bull markets",
			RiskFocus:    "Valuation and concentration risk",
			Actions: []string{
				"Maintain equity exposure",
				"Rebalance periodically",
				"Avoid leverage",
			},
			InvestmentAvenues: []string{
				"Equity mutual funds",
				"Index funds",
			},
			Allocation:      models.Allocation{Equity: 70, Debt: 20, Cash: 10},
			AllocationNotes: models.AllocationNotes{Equity: noteEquityGrowth, Debt: noteDebt, Cash: noteCash},
		},
		{
			Regime: models.RegimeUncertain,
			Theme: models.Theme{
				DisplayName: "High Volatility",
				Emoji:       "🟡",
				LineColor:   "#f9a825",
				BadgeBG:     "#fef9c3",
				BadgeText:   "#854d0e",
				BadgeBorder: "#eab308",
			},
			Objective:    "Capital preservation with flexibility",
			DominantRisk: "Whipsaws and sudden drawdowns",
			RiskFocus:    "Volatility control",
			Actions: []string{
				"Reduce concentrated bets",
				"Diversify assets",
				"Stagger investments",
			},
			InvestmentAvenues: []string{
				"Balanced funds",
				"Low-volatility equity",
				"Short-term debt",
			},
			Allocation:      models.Allocation{Equity: 40, Debt: 40, Cash: 20},
			AllocationNotes: models.AllocationNotes{Equity: noteEquityReduced, Debt: noteDebt, Cash: noteCash},
		},
		{
			Regime: models.RegimeCrisis,
			Theme: models.Theme{
				DisplayName: "Crisis / Bear",
				Emoji:       "🔴",
				LineColor:   "#c62828",
				BadgeBG:     "#fee2e2",
				BadgeText:   "#991b1b",
				BadgeBorder: "#ef4444",
			},
			Objective:    "Capital protection",
			DominantRisk: "Deep drawdowns and liquidity stress",
			RiskFocus:    "Survival and liquidity",
			Actions: []string{
				"Reduce equity exposure",
				"Hold liquid assets",
			},
			InvestmentAvenues: []string{
				"Liquid funds",
				"Government securities",
			},
			Allocation:      models.Allocation{Equity: 10, Debt: 50, Cash: 40},
			AllocationNotes: models.AllocationNotes{Equity: noteEquityReduced, Debt: noteDebt, Cash: noteCash},
		},
	}
}
