package twap

import (
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// Protocol bounds on the per-chunk fill delay.
const (
	MinFillDelay     = time.Minute
	MaxFillDelay     = 30 * 24 * time.Hour
	DefaultFillDelay = 5 * time.Minute
)

// EstimatedDelay returns the expected wall-clock time between consecutive
// chunk executions: double the protocol bid delay. The 2x safety margin is
// part of the protocol's own estimate and is not user-configurable.
func EstimatedDelay(bidDelaySeconds int64) time.Duration {
	if bidDelaySeconds <= 0 {
		return 0
	}
	return time.Duration(bidDelaySeconds) * time.Second * 2
}

// ResolveFillDelay returns the effective per-chunk delay: the custom value
// clamped to [min, max] when supplied, else the default.
func ResolveFillDelay(custom *domain.TimeSpan, def, min, max time.Duration) time.Duration {
	if custom == nil {
		return def
	}
	d := custom.Duration()
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// FillDelayBelowMin reports whether a user-typed fill delay crosses the
// protocol minimum. Crossing blocks submission.
func FillDelayBelowMin(custom *domain.TimeSpan, min time.Duration) bool {
	return custom != nil && custom.Duration() < min
}

// FillDelayAboveMax reports whether a user-typed fill delay crosses the
// protocol maximum. Crossing blocks submission.
func FillDelayAboveMax(custom *domain.TimeSpan, max time.Duration) bool {
	return custom != nil && custom.Duration() > max
}

// ResolveOrderDuration returns the total order duration: the explicit custom
// duration when supplied, else chunks x fillDelay, never less than one
// fill-delay tick.
func ResolveOrderDuration(custom *domain.TimeSpan, chunks int64, fillDelay time.Duration) time.Duration {
	var d time.Duration
	if custom != nil {
		d = custom.Duration()
	} else {
		d = time.Duration(chunks) * fillDelay
	}
	if d < fillDelay {
		d = fillDelay
	}
	return d
}

// PartialFillRisk reports whether the typed duration cannot accommodate all
// chunks at the configured delay. This is a non-blocking warning.
func PartialFillRisk(chunks int64, fillDelay time.Duration, typed *domain.TimeSpan) bool {
	if typed == nil || chunks <= 0 || fillDelay <= 0 {
		return false
	}
	return time.Duration(chunks)*fillDelay > typed.Duration()
}

// Deadline computes the on-chain order deadline from the derived duration.
func Deadline(now time.Time, duration time.Duration) time.Time {
	return now.Add(duration)
}
