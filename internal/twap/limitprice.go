package twap

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// marketOrderSentinel is the 1 base-unit floor that marks an order as a
// market order on the wire. The equivalence isMarketOrder <=> dstMinAmount <= 1
// must hold both at construction and at history reconstruction; keep the
// sentinel for interop with existing indexer data.
const marketOrderSentinel = "1"

// EffectivePrice resolves the limit price to use in amount math, always in
// the dst-per-src orientation. A custom price is stored in the display
// orientation and must be un-inverted (1/x) before use when the display is
// inverted. Without a custom price the live market price applies. ok=false
// means the price is not yet derivable (market unknown, malformed or zero
// custom).
func EffectivePrice(marketPrice decimal.Decimal, custom string, isCustom, inverted bool) (decimal.Decimal, bool) {
	if isCustom {
		c, err := decimal.NewFromString(strings.TrimSpace(custom))
		if err != nil || c.Sign() <= 0 {
			return decimal.Zero, false
		}
		if inverted {
			return one.Div(c), true
		}
		return c, true
	}
	if marketPrice.Sign() <= 0 {
		return decimal.Zero, false
	}
	return marketPrice, true
}

// PriceFromPercent derives a limit price from a preset percent offset against
// the displayed market price: market x (1 + percent/100). Under an inverted
// display the arithmetic sign of the percent flips, so that a positive preset
// always moves the price further from market in the direction the user
// expects.
func PriceFromPercent(marketPrice, percent decimal.Decimal, inverted bool) decimal.Decimal {
	p := percent
	if inverted {
		p = p.Neg()
	}
	return marketPrice.Mul(one.Add(p.Div(hundred)))
}

// PercentDiff returns (limit/market - 1) x 100, the offset of a limit price
// from the market price. Callers compare the numeric value, not the string
// representation, when matching preset buttons.
func PercentDiff(limitPrice, marketPrice decimal.Decimal) (decimal.Decimal, bool) {
	if marketPrice.Sign() <= 0 {
		return decimal.Zero, false
	}
	return limitPrice.Div(marketPrice).Sub(one).Mul(hundred), true
}

// DstMinChunkAmountOut computes the per-chunk destination floor in dst base
// units: the 1-unit sentinel for market orders, limitPrice x srcChunkAmountUI
// converted to base units for limit orders. "0" marks an underivable floor.
func DstMinChunkAmountOut(isMarket bool, limitPrice decimal.Decimal, srcChunkUI string, dstDecimals int32) string {
	if isMarket {
		return marketOrderSentinel
	}
	src, err := decimal.NewFromString(strings.TrimSpace(srcChunkUI))
	if err != nil || src.Sign() <= 0 || limitPrice.Sign() <= 0 {
		return "0"
	}
	out, ok := ToBaseUnits(dstDecimals, limitPrice.Mul(src).String())
	if !ok {
		return "0"
	}
	return out
}

// IsMarketOrder reclassifies an order from its wire-level destination floor:
// any floor of at most 1 base unit means "no floor".
func IsMarketOrder(dstMinAmount string) bool {
	v, ok := new(big.Int).SetString(strings.TrimSpace(dstMinAmount), 10)
	if !ok {
		return false
	}
	return v.Cmp(big.NewInt(1)) <= 0
}
