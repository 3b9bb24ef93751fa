package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnomalyGuardQuarantinesImplausibleDrop(t *testing.T) {
	guard := NewAnomalyGuard(30)

	decision := guard.Evaluate(100, 65)

	assert.True(t, decision.Quarantined)
	assert.Equal(t, 100.0, decision.Price)
	assert.Equal(t, 65.0, decision.Provisional)
	assert.InDelta(t, 35.0, decision.DropPercent, 0.001)
}

func TestAnomalyGuardAdoptsPlausibleDrop(t *testing.T) {
	guard := NewAnomalyGuard(30)

	decision := guard.Evaluate(100, 75)

	assert.False(t, decision.Quarantined)
	assert.Equal(t, 75.0, decision.Price)
}

func TestAnomalyGuardExactThresholdAdopts(t *testing.T) {
	// The gate is strictly greater-than.
	decision := NewAnomalyGuard(30).Evaluate(100, 70)

	assert.False(t, decision.Quarantined)
	assert.Equal(t, 70.0, decision.Price)
}

func TestAnomalyGuardNoBaselineAdopts(t *testing.T) {
	guard := NewAnomalyGuard(30)

	for _, old := range []float64{0, -1} {
		decision := guard.Evaluate(old, 12.5)
		assert.False(t, decision.Quarantined)
		assert.Equal(t, 12.5, decision.Price)
	}
}

func TestAnomalyGuardIncreasesNotGuarded(t *testing.T) {
	decision := NewAnomalyGuard(30).Evaluate(100, 400)

	assert.False(t, decision.Quarantined)
	assert.Equal(t, 400.0, decision.Price)
}

func TestAnomalyGuardIsPure(t *testing.T) {
	guard := NewAnomalyGuard(30)

	first := guard.Evaluate(100, 40)
	second := guard.Evaluate(100, 40)

	assert.Equal(t, first, second)
}

func TestAnomalyGuardZeroScrapeQuarantined(t *testing.T) {
	// A failed scrape (price 0) against an existing baseline is a 100% drop.
	decision := NewAnomalyGuard(30).Evaluate(24.99, 0)

	assert.True(t, decision.Quarantined)
	assert.Equal(t, 24.99, decision.Price)
}

func TestNewAnomalyGuardDefaultsThreshold(t *testing.T) {
	guard := NewAnomalyGuard(0)

	assert.True(t, guard.Evaluate(100, 69).Quarantined)
	assert.False(t, guard.Evaluate(100, 71).Quarantined)
}
