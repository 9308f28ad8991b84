package twap

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxChunks returns the maximum permissible number of chunks for an order of
// the given USD value: floor(srcAmountUSD / minChunkSizeUSD), floored at 1
// when the amount is positive but below the minimum chunk size. A zero or
// unknown amount (or minimum) yields 0: no order is possible.
func MaxChunks(srcAmountUSD, minChunkSizeUSD decimal.Decimal) int64 {
	if srcAmountUSD.Sign() <= 0 || minChunkSizeUSD.Sign() <= 0 {
		return 0
	}
	n := srcAmountUSD.Div(minChunkSizeUSD).Floor().IntPart()
	if n < 1 {
		return 1
	}
	return n
}

// ResolveChunks clamps the requested chunk count to [1, maxChunks]. A nil
// request defaults to maxChunks (smallest permissible per-chunk size). The
// limit-order panel variant always forces a single chunk.
func ResolveChunks(requested *int64, maxChunks int64, limitPanel bool) int64 {
	if limitPanel {
		return 1
	}
	if maxChunks <= 0 {
		return 0
	}
	if requested == nil {
		return maxChunks
	}
	c := *requested
	if c < 1 {
		c = 1
	}
	if c > maxChunks {
		c = maxChunks
	}
	return c
}

// SrcChunkAmount divides the base-unit source amount into chunks with floor
// division. A result of "0" marks an amount too small to split and blocks
// submission downstream.
func SrcChunkAmount(srcAmountBase string, chunks int64) string {
	amt, ok := new(big.Int).SetString(srcAmountBase, 10)
	if !ok || amt.Sign() <= 0 || chunks <= 0 {
		return "0"
	}
	return new(big.Int).Quo(amt, big.NewInt(chunks)).String()
}

// TotalChunks recovers the chunk count from the total and per-chunk amounts
// with ceiling division. For any resolved chunk count c it round-trips:
// TotalChunks(amount, SrcChunkAmount(amount, c)) == c, except when the chunk
// amount floored to 0.
func TotalChunks(srcAmountBase, srcChunkBase string) int64 {
	amt, ok := new(big.Int).SetString(srcAmountBase, 10)
	if !ok || amt.Sign() <= 0 {
		return 0
	}
	chunk, ok := new(big.Int).SetString(srcChunkBase, 10)
	if !ok || chunk.Sign() <= 0 {
		return 0
	}
	// ceil(amt / chunk)
	n := new(big.Int).Add(amt, new(big.Int).Sub(chunk, big.NewInt(1)))
	return new(big.Int).Quo(n, chunk).Int64()
}
