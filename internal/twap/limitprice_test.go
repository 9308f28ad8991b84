package twap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePrice(t *testing.T) {
	market := dec("2000")

	t.Run("market price when no custom", func(t *testing.T) {
		p, ok := EffectivePrice(market, "", false, false)
		require.True(t, ok)
		assert.True(t, p.Equal(market))
	})

	t.Run("custom price used directly", func(t *testing.T) {
		p, ok := EffectivePrice(market, "2100", true, false)
		require.True(t, ok)
		assert.Equal(t, "2100", p.String())
	})

	t.Run("inverted custom is un-inverted before use", func(t *testing.T) {
		p, ok := EffectivePrice(market, "0.0005", true, true)
		require.True(t, ok)
		assert.Equal(t, "2000", p.String())
	})

	t.Run("no market and no custom is pending", func(t *testing.T) {
		_, ok := EffectivePrice(dec("0"), "", false, false)
		assert.False(t, ok)
	})

	t.Run("zero custom is invalid", func(t *testing.T) {
		_, ok := EffectivePrice(market, "0", true, false)
		assert.False(t, ok)
	})
}

func TestPriceFromPercent(t *testing.T) {
	market := dec("2000")

	t.Run("positive percent above market", func(t *testing.T) {
		p := PriceFromPercent(market, dec("5"), false)
		assert.Equal(t, "2100", p.String())
	})

	t.Run("inverted flips the sign", func(t *testing.T) {
		// In the inverted display frame a positive preset moves the price the
		// other way: market x (1 - 5/100).
		p := PriceFromPercent(market, dec("5"), true)
		assert.Equal(t, "1900", p.String())
	})

	t.Run("negative percent below market", func(t *testing.T) {
		p := PriceFromPercent(market, dec("-5"), false)
		assert.Equal(t, "1900", p.String())
	})
}

func TestPercentDiff(t *testing.T) {
	d, ok := PercentDiff(dec("2100"), dec("2000"))
	require.True(t, ok)
	assert.True(t, d.Equal(dec("5")), "got %s", d)

	d, ok = PercentDiff(dec("1900"), dec("2000"))
	require.True(t, ok)
	assert.True(t, d.Equal(dec("-5")), "got %s", d)

	_, ok = PercentDiff(dec("2100"), dec("0"))
	assert.False(t, ok)
}

func TestDstMinChunkAmountOut(t *testing.T) {
	t.Run("market order uses the one-unit sentinel", func(t *testing.T) {
		got := DstMinChunkAmountOut(true, dec("2000"), "1.5", 6)
		assert.Equal(t, "1", got)
		assert.True(t, IsMarketOrder(got))
	})

	t.Run("limit order floor from price times chunk", func(t *testing.T) {
		got := DstMinChunkAmountOut(false, dec("2000"), "1.5", 6)
		assert.Equal(t, "3000000000", got)
		assert.False(t, IsMarketOrder(got))
	})

	t.Run("missing chunk size yields zero floor", func(t *testing.T) {
		assert.Equal(t, "0", DstMinChunkAmountOut(false, dec("2000"), "", 6))
	})
}

func TestIsMarketOrderSentinel(t *testing.T) {
	// The equivalence isMarketOrder <=> dstMinAmount <= 1 holds symmetrically.
	assert.True(t, IsMarketOrder("0"))
	assert.True(t, IsMarketOrder("1"))
	assert.False(t, IsMarketOrder("2"))
	assert.False(t, IsMarketOrder("3000000000"))
	assert.False(t, IsMarketOrder("not-a-number"))
}
