package domain

import (
	"time"
)

// TimeUnit is the resolution of a user-typed duration or fill delay.
type TimeUnit string

const (
	UnitMinutes TimeUnit = "minutes"
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
	UnitWeeks   TimeUnit = "weeks"
)

// TimeSpan is a user-typed {unit, amount} pair.
type TimeSpan struct {
	Unit   TimeUnit `json:"unit"`
	Amount int64    `json:"amount"`
}

// Duration converts the span to a time.Duration. Unknown units yield zero.
func (s TimeSpan) Duration() time.Duration {
	switch s.Unit {
	case UnitMinutes:
		return time.Duration(s.Amount) * time.Minute
	case UnitHours:
		return time.Duration(s.Amount) * time.Hour
	case UnitDays:
		return time.Duration(s.Amount) * 24 * time.Hour
	case UnitWeeks:
		return time.Duration(s.Amount) * 7 * 24 * time.Hour
	default:
		return 0
	}
}

// OrderDraft is the in-progress state of one not-yet-created order. It is an
// immutable value: every mutation returns a copy, and all derived values are
// recomputed from the current snapshot (never from stale captures).
type OrderDraft struct {
	ID    string `json:"id"`
	Maker string `json:"maker"`

	SrcToken Token `json:"src_token"`
	DstToken Token `json:"dst_token"`

	// SrcAmountUI is the user-typed source amount in human units.
	SrcAmountUI string `json:"src_amount_ui"`

	// IsMarketOrder means no floor price: the destination amount is purely
	// indicative and the on-chain floor collapses to the 1-unit sentinel.
	IsMarketOrder bool `json:"is_market_order"`

	CustomLimitPrice     string `json:"custom_limit_price,omitempty"`
	IsCustomLimitPrice   bool   `json:"is_custom_limit_price"`
	IsInvertedLimitPrice bool   `json:"is_inverted_limit_price"`

	CustomChunks    *int64    `json:"custom_chunks,omitempty"`
	CustomFillDelay *TimeSpan `json:"custom_fill_delay,omitempty"`
	TypedDuration   *TimeSpan `json:"typed_duration,omitempty"`

	// LimitPanel marks the limit-order panel variant, which always forces a
	// single chunk.
	LimitPanel bool `json:"limit_panel"`

	DisclaimerAccepted bool      `json:"disclaimer_accepted"`
	CreatedAt          time.Time `json:"created_at"`
}

// WithTokens returns a copy with a new token pair selected.
func (d OrderDraft) WithTokens(src, dst Token) OrderDraft {
	d.SrcToken = src
	d.DstToken = dst
	return d
}

// SwitchTokens swaps src and dst atomically. Typed amount and custom price are
// cleared since they no longer describe the displayed pair.
func (d OrderDraft) SwitchTokens() OrderDraft {
	d.SrcToken, d.DstToken = d.DstToken, d.SrcToken
	d.SrcAmountUI = ""
	d.CustomLimitPrice = ""
	d.IsCustomLimitPrice = false
	d.IsInvertedLimitPrice = false
	return d
}

// WithSrcAmount returns a copy with the typed source amount replaced.
func (d OrderDraft) WithSrcAmount(ui string) OrderDraft {
	d.SrcAmountUI = ui
	return d
}

// ToggleMarketLimit flips between market and limit mode. The live market price
// at toggle time becomes the new limit baseline and inversion is reset.
func (d OrderDraft) ToggleMarketLimit(marketPrice string) OrderDraft {
	d.IsMarketOrder = !d.IsMarketOrder
	d.CustomLimitPrice = marketPrice
	d.IsCustomLimitPrice = marketPrice != ""
	d.IsInvertedLimitPrice = false
	return d
}

// WithCustomLimitPrice returns a copy with an explicit limit price in the
// current display orientation.
func (d OrderDraft) WithCustomLimitPrice(price string) OrderDraft {
	d.CustomLimitPrice = price
	d.IsCustomLimitPrice = price != ""
	return d
}

// WithInverted returns a copy with the price display orientation flipped.
func (d OrderDraft) WithInverted(inverted bool) OrderDraft {
	d.IsInvertedLimitPrice = inverted
	return d
}

// WithChunks returns a copy with an explicit chunk count request. Pass nil to
// return to the engine-derived default.
func (d OrderDraft) WithChunks(chunks *int64) OrderDraft {
	d.CustomChunks = chunks
	return d
}

// WithFillDelay returns a copy with a custom per-chunk fill delay.
func (d OrderDraft) WithFillDelay(span *TimeSpan) OrderDraft {
	d.CustomFillDelay = span
	return d
}

// WithDuration returns a copy with an explicit total order duration.
func (d OrderDraft) WithDuration(span *TimeSpan) OrderDraft {
	d.TypedDuration = span
	return d
}

// WithDisclaimer returns a copy with the submission disclaimer gate set.
func (d OrderDraft) WithDisclaimer(accepted bool) OrderDraft {
	d.DisclaimerAccepted = accepted
	return d
}
