package twap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orbs-network/twap-engine/internal/domain"
)

func span(unit domain.TimeUnit, amount int64) *domain.TimeSpan {
	return &domain.TimeSpan{Unit: unit, Amount: amount}
}

func TestEstimatedDelay(t *testing.T) {
	assert.Equal(t, 2*time.Minute, EstimatedDelay(60))
	assert.Equal(t, time.Duration(0), EstimatedDelay(0))
}

func TestResolveFillDelay(t *testing.T) {
	tests := []struct {
		name   string
		custom *domain.TimeSpan
		want   time.Duration
	}{
		{"nil uses default", nil, DefaultFillDelay},
		{"custom within bounds", span(domain.UnitMinutes, 10), 10 * time.Minute},
		{"clamped to min", span(domain.UnitMinutes, 0), MinFillDelay},
		{"clamped to max", span(domain.UnitWeeks, 52), MaxFillDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFillDelay(tt.custom, DefaultFillDelay, MinFillDelay, MaxFillDelay)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFillDelayBounds(t *testing.T) {
	assert.True(t, FillDelayBelowMin(span(domain.UnitMinutes, 0), MinFillDelay))
	assert.False(t, FillDelayBelowMin(nil, MinFillDelay))
	assert.True(t, FillDelayAboveMax(span(domain.UnitWeeks, 52), MaxFillDelay))
	assert.False(t, FillDelayAboveMax(span(domain.UnitDays, 30), MaxFillDelay))
}

func TestResolveOrderDuration(t *testing.T) {
	fillDelay := 5 * time.Minute

	t.Run("derived from chunks", func(t *testing.T) {
		assert.Equal(t, 50*time.Minute, ResolveOrderDuration(nil, 10, fillDelay))
	})
	t.Run("explicit custom wins", func(t *testing.T) {
		assert.Equal(t, 2*time.Hour, ResolveOrderDuration(span(domain.UnitHours, 2), 10, fillDelay))
	})
	t.Run("floored at one fill delay tick", func(t *testing.T) {
		assert.Equal(t, fillDelay, ResolveOrderDuration(span(domain.UnitMinutes, 1), 10, fillDelay))
		assert.Equal(t, fillDelay, ResolveOrderDuration(nil, 0, fillDelay))
	})
}

func TestPartialFillRisk(t *testing.T) {
	fillDelay := 5 * time.Minute

	// 10 chunks x 5m = 50m > 30m typed duration: cannot complete.
	assert.True(t, PartialFillRisk(10, fillDelay, span(domain.UnitMinutes, 30)))
	// 10 chunks x 5m = 50m <= 1h typed duration: fine.
	assert.False(t, PartialFillRisk(10, fillDelay, span(domain.UnitHours, 1)))
	// No typed duration means the derived one always fits.
	assert.False(t, PartialFillRisk(10, fillDelay, nil))
}

func TestDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Hour), Deadline(now, time.Hour))
}
