package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RegimeLabel is the categorical market-condition tag. It carries no ordering.
type RegimeLabel string

const (
	RegimeStable    RegimeLabel = "Stable"
	RegimeUncertain RegimeLabel = "Uncertain"
	RegimeCrisis    RegimeLabel = "Crisis"
)

// AllRegimes returns the closed label set in display order.
func AllRegimes() []RegimeLabel {
	return []RegimeLabel{RegimeStable, RegimeUncertain, RegimeCrisis}
}

// regimeAliases maps exact backend spellings to canonical labels.
// Matching is exact; there is no substring or case folding.
var regimeAliases = map[string]RegimeLabel{
	"Stable":                   RegimeStable,
	"Uncertain":                RegimeUncertain,
	"Crisis":                   RegimeCrisis,
	"Stable / Bull Market":     RegimeStable,
	"Uncertain / Transition":   RegimeUncertain,
	"Crisis / High Volatility": RegimeCrisis,
}

// ParseRegimeLabel resolves a backend label to its canonical value.
func ParseRegimeLabel(s string) (RegimeLabel, error) {
	if r, ok := regimeAliases[strings.TrimSpace(s)]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRegime, s)
}

// Valid reports whether r belongs to the closed label set.
func (r RegimeLabel) Valid() bool {
	switch r {
	case RegimeStable, RegimeUncertain, RegimeCrisis:
		return true
	default:
		return false
	}
}

func (r RegimeLabel) String() string { return string(r) }

func (r *RegimeLabel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: label must be a string, got %s", ErrUnknownRegime, b)
	}
	parsed, err := ParseRegimeLabel(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
