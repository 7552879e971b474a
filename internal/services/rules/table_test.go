package rules

import (
	"testing"

	"RegimeDash/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCoversEveryRegime(t *testing.T) {
	table := NewTable()
	for _, label := range models.AllRegimes() {
		t.Run(string(label), func(t *testing.T) {
			r, err := table.Lookup(label)
			require.NoError(t, err)
			assert.Equal(t, label, r.Regime)
			assert.Equal(t, 100, r.Allocation.Sum())
			assert.GreaterOrEqual(t, r.Allocation.Equity, 0)
			assert.GreaterOrEqual(t, r.Allocation.Debt, 0)
			assert.GreaterOrEqual(t, r.Allocation.Cash, 0)
			assert.NotEmpty(t, r.Actions)
			assert.NotEmpty(t, r.InvestmentAvenues)
			assert.NotEmpty(t, r.Objective)
			assert.NotEmpty(t, r.DominantRisk)
			assert.NotEmpty(t, r.Theme.LineColor)
		})
	}
}

func TestLookupAllocations(t *testing.T) {
	table := NewTable()
	want := map[models.RegimeLabel]models.Allocation{
		models.RegimeStable:    {Equity: 70, Debt: 20, Cash: 10},
		models.RegimeUncertain: {Equity: 40, Debt: 40, Cash: 20},
		models.RegimeCrisis:    {Equity: 10, Debt: 50, Cash: 40},
	}
	for label, alloc := range want {
		r, err := table.Lookup(label)
		require.NoError(t, err)
		assert.Equal(t, alloc, r.Allocation, label)
	}
}

func TestLookupUnknownIsError(t *testing.T) {
	table := NewTable()
	for _, label := range []models.RegimeLabel{"", "Stable / Bull Market", "Bear", "0"} {
		_, err := table.Lookup(label)
		assert.ErrorIs(t, err, models.ErrUnknownRegime, label)
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	table := NewTable()
	r, err := table.Lookup(models.RegimeStable)
	require.NoError(t, err)
	r.Actions[0] = "Buy everything"
	r.InvestmentAvenues = nil

	again, err := table.Lookup(models.RegimeStable)
	require.NoError(t, err)
	assert.Equal(t, "Maintain equity exposure", again.Actions[0])
	assert.NotEmpty(t, again.InvestmentAvenues)
}

func TestColorsAreDistinct(t *testing.T) {
	table := NewTable()
	seen := map[models.Color]models.RegimeLabel{}
	for _, label := range models.AllRegimes() {
		c, err := table.Color(label)
		require.NoError(t, err)
		_, dup := seen[c]
		assert.False(t, dup, "color %s reused", c)
		seen[c] = label
	}
}

func TestAllKeepsDisplayOrder(t *testing.T) {
	all := NewTable().All()
	require.Len(t, all, 3)
	assert.Equal(t, models.RegimeStable, all[0].Regime)
	assert.Equal(t, models.RegimeUncertain, all[1].Regime)
	assert.Equal(t, models.RegimeCrisis, all[2].Regime)
}

func TestNewTableFromRejectsBadRules(t *testing.T) {
	good := defaultRules()

	missing := good[:2]
	_, err := NewTableFrom(missing)
	assert.Error(t, err)

	badSum := defaultRules()
	badSum[0].Allocation = models.Allocation{Equity: 70, Debt: 20, Cash: 5}
	_, err = NewTableFrom(badSum)
	assert.Error(t, err)

	negative := defaultRules()
	negative[1].Allocation = models.Allocation{Equity: 110, Debt: -10, Cash: 0}
	_, err = NewTableFrom(negative)
	assert.Error(t, err)

	noActions := defaultRules()
	noActions[2].Actions = nil
	_, err = NewTableFrom(noActions)
	assert.Error(t, err)

	dup := append(defaultRules(), defaultRules()[0])
	_, err = NewTableFrom(dup)
	assert.Error(t, err)

	unknown := append(defaultRules(), models.RegimeRule{Regime: "Euphoria"})
	_, err = NewTableFrom(unknown)
	assert.ErrorIs(t, err, models.ErrUnknownRegime)
}
