package twap

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// Readouts are the asynchronous external inputs to one derivation: USD
// prices, the live market price (dst per src), and the maker's source
// balance. Loading readouts put the derivation into the pending state rather
// than defaulting to zero.
type Readouts struct {
	SrcUSD      domain.USDPrice
	DstUSD      domain.USDPrice
	MarketPrice string // dst per one src, UI units
	SrcBalance  string // base units; empty means not loaded
}

// Params is the per-exchange protocol configuration a derivation runs
// against.
type Params struct {
	Exchange         string
	WrappedNative    string
	MinChunkSizeUSD  string
	BidDelaySeconds  int64
	DefaultFillDelay time.Duration
	MinFillDelay     time.Duration
	MaxFillDelay     time.Duration
	FeeOnTransfer    bool
}

// Derive computes the full derived-values record for one draft snapshot. It
// is the single entry point the API and submission flow consume; everything
// is recomputed from the snapshot on every call so no stale intermediate
// state can drift.
func Derive(d domain.OrderDraft, r Readouts, p Params, now time.Time) domain.DerivedOrder {
	out := domain.DerivedOrder{State: domain.StateIdle}

	if d.SrcToken.IsZero() && d.DstToken.IsZero() && strings.TrimSpace(d.SrcAmountUI) == "" {
		return out
	}

	// 1. Token pair.
	if !validPair(d, p.WrappedNative) {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorInvalidTokens
		return out
	}

	// 2. Source amount.
	srcBase, ok := ToBaseUnits(d.SrcToken.Decimals, d.SrcAmountUI)
	if !ok || !positiveInt(srcBase) {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorEnterAmount
		return out
	}
	out.SrcAmount = srcBase

	// External readouts gate the rest: report pending, never substitute zero.
	if r.SrcUSD.Loading || r.SrcBalance == "" {
		out.State = domain.StatePending
		return out
	}

	// 3. Balance.
	if cmpInt(srcBase, r.SrcBalance) > 0 {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorInsufficientFunds
		return out
	}

	// Chunking. maxChunks needs the USD value of the source amount.
	srcUSDValue := mulUI(d.SrcAmountUI, r.SrcUSD.Value)
	minChunkUSD, _ := decimal.NewFromString(p.MinChunkSizeUSD)
	out.MaxChunks = MaxChunks(srcUSDValue, minChunkUSD)
	out.Chunks = ResolveChunks(d.CustomChunks, out.MaxChunks, d.LimitPanel)
	out.SrcChunkAmount = SrcChunkAmount(srcBase, out.Chunks)

	// 4. Per-chunk size.
	if !positiveInt(out.SrcChunkAmount) {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorEnterTradeSize
		return out
	}
	out.SrcChunkAmountUI, _ = ToUIUnits(d.SrcToken.Decimals, out.SrcChunkAmount)

	// Scheduling.
	out.EstimatedChunkInterval = EstimatedDelay(p.BidDelaySeconds)
	out.FillDelay = ResolveFillDelay(d.CustomFillDelay, p.DefaultFillDelay, p.MinFillDelay, p.MaxFillDelay)
	out.Duration = ResolveOrderDuration(d.TypedDuration, out.Chunks, out.FillDelay)
	out.Deadline = Deadline(now, out.Duration)

	// 5. Duration.
	if out.Duration <= 0 {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorEnterMaxDuration
		return out
	}
	if FillDelayBelowMin(d.CustomFillDelay, p.MinFillDelay) {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorMinFillDelay
		return out
	}
	if FillDelayAboveMax(d.CustomFillDelay, p.MaxFillDelay) {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorMaxFillDelay
		return out
	}

	// Pricing.
	market, _ := decimal.NewFromString(strings.TrimSpace(r.MarketPrice))
	if market.Sign() > 0 {
		out.MarketPrice = market.String()
	}
	limitPrice, priceOK := EffectivePrice(market, d.CustomLimitPrice, d.IsCustomLimitPrice, d.IsInvertedLimitPrice)

	// 6. Limit orders need a positive floor price.
	if !d.IsMarketOrder && !priceOK {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorInsertLimitPrice
		return out
	}
	if priceOK {
		out.LimitPrice = limitPrice.String()
	}
	out.DstMinChunkAmountOut = DstMinChunkAmountOut(d.IsMarketOrder, limitPrice, out.SrcChunkAmountUI, d.DstToken.Decimals)
	if priceOK {
		if srcUI, err := decimal.NewFromString(strings.TrimSpace(d.SrcAmountUI)); err == nil {
			out.DstAmountOutUI = limitPrice.Mul(srcUI).String()
		}
	}

	// 7. Anti-dust: the per-chunk USD value must clear the protocol minimum.
	chunkUSD := mulUI(out.SrcChunkAmountUI, r.SrcUSD.Value)
	out.SrcChunkUSD = chunkUSD.String()
	if minChunkUSD.Sign() > 0 && chunkUSD.Cmp(minChunkUSD) < 0 {
		out.State = domain.StateInvalid
		out.Invalid = domain.ErrorChunkUSDTooSmall
		return out
	}

	// Non-blocking warnings.
	if PartialFillRisk(out.Chunks, out.FillDelay, d.TypedDuration) {
		out.Warnings = append(out.Warnings, domain.WarnPartialFill)
	}
	if p.FeeOnTransfer {
		out.Warnings = append(out.Warnings, domain.WarnFeeOnTransfer)
	}

	out.State = domain.StateValid
	out.Submit = &domain.SubmitParams{
		Exchange:             p.Exchange,
		SrcToken:             d.SrcToken.Address,
		DstToken:             d.DstToken.Address,
		SrcAmount:            out.SrcAmount,
		SrcChunkAmount:       out.SrcChunkAmount,
		DstMinChunkAmountOut: out.DstMinChunkAmountOut,
		Deadline:             out.Deadline,
		FillDelaySeconds:     int64(out.FillDelay / time.Second),
	}
	return out
}

// validPair checks the token-pair prerequisites for check 1: both selected,
// distinct, not both native, and not a wrap-only/unwrap-only pairing.
func validPair(d domain.OrderDraft, wrappedNative string) bool {
	if d.SrcToken.IsZero() || d.DstToken.IsZero() {
		return false
	}
	if d.SrcToken.Equals(d.DstToken) {
		return false
	}
	if d.SrcToken.IsNative() && d.DstToken.IsNative() {
		return false
	}
	if domain.WrapPair(d.SrcToken, d.DstToken, wrappedNative) {
		return false
	}
	return true
}

func positiveInt(base string) bool {
	v, ok := new(big.Int).SetString(base, 10)
	return ok && v.Sign() > 0
}

// cmpInt compares two base-unit integer strings; malformed values compare as
// zero.
func cmpInt(a, b string) int {
	av, ok := new(big.Int).SetString(a, 10)
	if !ok {
		av = new(big.Int)
	}
	bv, ok := new(big.Int).SetString(b, 10)
	if !ok {
		bv = new(big.Int)
	}
	return av.Cmp(bv)
}

// mulUI multiplies two UI decimal strings, treating malformed input as zero.
func mulUI(a, b string) decimal.Decimal {
	av, err := decimal.NewFromString(strings.TrimSpace(a))
	if err != nil {
		return decimal.Zero
	}
	bv, err := decimal.NewFromString(strings.TrimSpace(b))
	if err != nil {
		return decimal.Zero
	}
	return av.Mul(bv)
}
