// Package history reconstructs client-visible TWAP order history from raw
// indexer records: per-order progress, derived status, execution and limit
// prices, and the merge with locally cached optimistic orders.
package history

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/orbs-network/twap-engine/internal/twap"
)

// progressCompletionThreshold promotes any fill ratio at or above 0.99 to
// 100%. The threshold compensates for dust left by on-chain fill rounding and
// must stay exactly 0.99 for compatibility with indexed orders.
const progressCompletionThreshold = 0.99

// Policy is the per-chain exception table for history reconstruction. The
// exceptions are deliberate, documented workarounds kept auditable in one
// place instead of scattered chain-id branches.
type Policy struct {
	// UseLocalProgressOverride distrusts the indexer's open/completed markers
	// until locally computed progress reaches 100. Needed on BSC, where the
	// canonical open signal is unreliable before the indexer has synced.
	UseLocalProgressOverride bool

	// LegacyExchangeAddresses keeps orders created under prior contract
	// deployments visible.
	LegacyExchangeAddresses []string
}

// DecimalsFunc resolves a token address to its decimal count. ok=false means
// the token is unknown and derived prices are omitted.
type DecimalsFunc func(address string) (int32, bool)

// Progress returns the fill percentage in [0, 100]. Either total missing or
// non-positive yields 0. Any nonzero ratio at or above the completion
// threshold is promoted to 100.
func Progress(srcFilled, srcAmount string) float64 {
	filled, err := decimal.NewFromString(strings.TrimSpace(srcFilled))
	if err != nil || filled.Sign() <= 0 {
		return 0
	}
	total, err := decimal.NewFromString(strings.TrimSpace(srcAmount))
	if err != nil || total.Sign() <= 0 {
		return 0
	}
	ratio, _ := filled.Div(total).Float64()
	if ratio > 1 {
		ratio = 1
	}
	if ratio >= progressCompletionThreshold {
		return 100
	}
	return ratio * 100
}

// DeriveStatus computes the order status from progress, the raw indexer
// marker, and the deadline. Completed overrides everything once progress hits
// 100; Canceled is sticky once the raw source confirms it; Open holds while
// the deadline is in the future; Expired is the fallback.
//
// Under Policy.UseLocalProgressOverride the raw open/completed markers are
// ignored and the locally computed progress-based guess is substituted until
// progress reaches 100.
func DeriveStatus(raw domain.RawStatus, progress float64, deadline, now time.Time, p Policy) domain.OrderStatus {
	if progress >= 100 {
		return domain.StatusCompleted
	}
	if raw == domain.RawStatusCanceled {
		return domain.StatusCanceled
	}
	if !p.UseLocalProgressOverride {
		if raw == domain.RawStatusCompleted {
			return domain.StatusCompleted
		}
		if raw == domain.RawStatusOpen {
			return domain.StatusOpen
		}
	}
	if now.Before(deadline) {
		return domain.StatusOpen
	}
	return domain.StatusExpired
}

// Reconstruct merges one order-creation record with its aggregated fills into
// a HistoryOrder, matching the same rounding and threshold rules the contract
// and indexer use.
func Reconstruct(c domain.RawOrderCreated, totals domain.RawFillTotals, raw domain.RawStatus, decimals DecimalsFunc, p Policy, now time.Time) domain.HistoryOrder {
	o := domain.HistoryOrder{
		ID:               c.ID,
		ChainID:          c.ChainID,
		Exchange:         c.Exchange,
		Maker:            c.Maker,
		SrcTokenAddress:  c.SrcTokenAddress,
		DstTokenAddress:  c.DstTokenAddress,
		SrcAmount:        c.SrcAmount,
		SrcBidAmount:     c.SrcBidAmount,
		DstMinAmount:     c.DstMinAmount,
		FillDelaySeconds: c.FillDelaySeconds,
		Deadline:         time.Unix(c.Deadline, 0).UTC(),
		CreatedAt:        time.Unix(c.CreatedAt, 0).UTC(),
		TxHash:           c.TxHash,
		SrcFilledAmount:  totals.SrcFilledAmount,
		DstAmountOut:     totals.DstAmountOut,
	}

	o.TotalChunks = twap.TotalChunks(c.SrcAmount, c.SrcBidAmount)
	o.Progress = Progress(totals.SrcFilledAmount, c.SrcAmount)
	o.Status = DeriveStatus(raw, o.Progress, o.Deadline, now, p)

	srcDec, srcOK := decimals(c.SrcTokenAddress)
	dstDec, dstOK := decimals(c.DstTokenAddress)
	if srcOK && dstOK {
		o.ExecutionPrice = uiPrice(totals.DstAmountOut, dstDec, totals.SrcFilledAmount, srcDec)
		if !twap.IsMarketOrder(c.DstMinAmount) {
			o.LimitPrice = uiPrice(c.DstMinAmount, dstDec, c.SrcBidAmount, srcDec)
		}
	}
	return o
}

// uiPrice divides two base-unit amounts after normalizing each to UI units.
// Missing or zero denominators yield "".
func uiPrice(numBase string, numDec int32, denBase string, denDec int32) string {
	numUI, ok := twap.ToUIUnits(numDec, numBase)
	if !ok {
		return ""
	}
	denUI, ok := twap.ToUIUnits(denDec, denBase)
	if !ok {
		return ""
	}
	num, err := decimal.NewFromString(numUI)
	if err != nil || num.Sign() <= 0 {
		return ""
	}
	den, err := decimal.NewFromString(denUI)
	if err != nil || den.Sign() <= 0 {
		return ""
	}
	return num.Div(den).String()
}
