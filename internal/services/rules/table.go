package rules

import (
	"fmt"

	"RegimeDash/internal/domain/models"
)

// Table maps every regime label to its static guidance. It is read-only after
// construction and safe for concurrent readers.
type Table struct {
	rules map[models.RegimeLabel]models.RegimeRule
}

// NewTable returns the built-in rule table.
func NewTable() *Table {
	t, err := NewTableFrom(defaultRules())
	if err != nil {
		panic(fmt.Sprintf("rules: built-in table invalid: %v", err))
	}
	return t
}

// NewTableFrom validates rules and builds a table. Every label in models.AllRegimes
// must be present exactly once.
func NewTableFrom(rules []models.RegimeRule) (*Table, error) {
	m := make(map[models.RegimeLabel]models.RegimeRule, len(rules))
	for _, r := range rules {
		if !r.Regime.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownRegime, r.Regime)
		}
		if _, dup := m[r.Regime]; dup {
			return nil, fmt.Errorf("duplicate rule for %s", r.Regime)
		}
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Regime, err)
		}
		m[r.Regime] = r.Clone()
	}
	for _, label := range models.AllRegimes() {
		if _, ok := m[label]; !ok {
			return nil, fmt.Errorf("missing rule for %s", label)
		}
	}
	return &Table{rules: m}, nil
}

// Lookup returns a copy of the rule for regime. Unmapped labels are an error.
func (t *Table) Lookup(regime models.RegimeLabel) (models.RegimeRule, error) {
	r, ok := t.rules[regime]
	if !ok {
		return models.RegimeRule{}, fmt.Errorf("%w: %q", models.ErrUnknownRegime, regime)
	}
	return r.Clone(), nil
}

// All returns the rules in display order.
func (t *Table) All() []models.RegimeRule {
	out := make([]models.RegimeRule, 0, len(t.rules))
	for _, label := range models.AllRegimes() {
		out = append(out, t.rules[label].Clone())
	}
	return out
}

// Color returns the timeline line color of regime.
func (t *Table) Color(regime models.RegimeLabel) (models.Color, error) {
	r, ok := t.rules[regime]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownRegime, regime)
	}
	return r.Theme.LineColor, nil
}

func validateRule(r models.RegimeRule) error {
	if len(r.Actions) == 0 {
		return fmt.Errorf("actions cannot be empty")
	}
	if len(r.InvestmentAvenues) == 0 {
		return fmt.Errorf("investment avenues cannot be empty")
	}
	if r.Theme.LineColor == "" {
		return fmt.Errorf("line color is required")
	}
	return r.Allocation.Validate()
}
