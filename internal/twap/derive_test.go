package twap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbs-network/twap-engine/internal/domain"
)

var (
	usdc = domain.Token{Address: "0x2791bca1f2de4661ed88a30c99a7a9449aa84174", Decimals: 6, Symbol: "USDC"}
	weth = domain.Token{Address: "0x7ceb23fd6bc0add59e62ac25578270cff1b9f619", Decimals: 18, Symbol: "WETH"}
)

func testParams() Params {
	return Params{
		Exchange:         "0x25a0A78f5ad07b2474D3D42F1c1432178465936d",
		WrappedNative:    "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
		MinChunkSizeUSD:  "50",
		BidDelaySeconds:  60,
		DefaultFillDelay: DefaultFillDelay,
		MinFillDelay:     MinFillDelay,
		MaxFillDelay:     MaxFillDelay,
	}
}

func testReadouts() Readouts {
	return Readouts{
		SrcUSD:      domain.USDPrice{Value: "1"},
		DstUSD:      domain.USDPrice{Value: "2000"},
		MarketPrice: "0.0005",
		SrcBalance:  "2000000000", // 2000 USDC
	}
}

func marketDraft() domain.OrderDraft {
	return domain.OrderDraft{
		SrcToken:      usdc,
		DstToken:      weth,
		SrcAmountUI:   "1000",
		IsMarketOrder: true,
	}
}

func TestDeriveMarketOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := Derive(marketDraft(), testReadouts(), testParams(), now)

	require.Equal(t, domain.StateValid, out.State)
	require.NotNil(t, out.Submit)

	// 1000 USD over 50 USD minimum chunks: 20 chunks of 50 USDC.
	assert.Equal(t, int64(20), out.MaxChunks)
	assert.Equal(t, int64(20), out.Chunks)
	assert.Equal(t, "1000000000", out.SrcAmount)
	assert.Equal(t, "50000000", out.SrcChunkAmount)
	assert.Equal(t, "50", out.SrcChunkUSD)

	// Market order collapses to the sentinel floor.
	assert.Equal(t, "1", out.DstMinChunkAmountOut)
	assert.True(t, IsMarketOrder(out.Submit.DstMinChunkAmountOut))

	// Duration defaults to chunks x fill delay.
	assert.Equal(t, DefaultFillDelay, out.FillDelay)
	assert.Equal(t, 20*DefaultFillDelay, out.Duration)
	assert.Equal(t, now.Add(20*DefaultFillDelay), out.Deadline)
	assert.Equal(t, int64(300), out.Submit.FillDelaySeconds)
	assert.Equal(t, 2*time.Minute, out.EstimatedChunkInterval)
}

func TestDeriveLimitOrder(t *testing.T) {
	now := time.Now()
	d := marketDraft()
	d.IsMarketOrder = false
	d.CustomLimitPrice = "0.00048"
	d.IsCustomLimitPrice = true

	out := Derive(d, testReadouts(), testParams(), now)
	require.Equal(t, domain.StateValid, out.State)

	// 50 USDC chunk at 0.00048 WETH per USDC, in 18-decimal base units.
	assert.Equal(t, "24000000000000000", out.DstMinChunkAmountOut)
	assert.False(t, IsMarketOrder(out.Submit.DstMinChunkAmountOut))
	assert.Equal(t, "0.00048", out.LimitPrice)
}

func TestDeriveLimitPanelForcesOneChunk(t *testing.T) {
	d := marketDraft()
	d.LimitPanel = true
	d.IsMarketOrder = false

	out := Derive(d, testReadouts(), testParams(), time.Now())
	require.Equal(t, domain.StateValid, out.State)
	assert.Equal(t, int64(1), out.Chunks)
	assert.Equal(t, "1000000000", out.SrcChunkAmount)
}

func TestDeriveValidationOrder(t *testing.T) {
	now := time.Now()
	r := testReadouts()
	p := testParams()

	t.Run("idle on empty draft", func(t *testing.T) {
		out := Derive(domain.OrderDraft{}, r, p, now)
		assert.Equal(t, domain.StateIdle, out.State)
	})

	t.Run("invalid tokens first", func(t *testing.T) {
		d := marketDraft()
		d.DstToken = usdc // same token both sides
		out := Derive(d, r, p, now)
		assert.Equal(t, domain.StateInvalid, out.State)
		assert.Equal(t, domain.ErrorInvalidTokens, out.Invalid)
	})

	t.Run("wrap-only pair rejected", func(t *testing.T) {
		d := marketDraft()
		d.SrcToken = domain.Token{Address: "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", Decimals: 18, Symbol: "MATIC"}
		d.DstToken = domain.Token{Address: p.WrappedNative, Decimals: 18, Symbol: "WMATIC"}
		out := Derive(d, r, p, now)
		assert.Equal(t, domain.ErrorInvalidTokens, out.Invalid)
	})

	t.Run("enter amount", func(t *testing.T) {
		d := marketDraft()
		d.SrcAmountUI = "0"
		out := Derive(d, r, p, now)
		assert.Equal(t, domain.ErrorEnterAmount, out.Invalid)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		d := marketDraft()
		d.SrcAmountUI = "5000" // balance is 2000
		out := Derive(d, r, p, now)
		assert.Equal(t, domain.ErrorInsufficientFunds, out.Invalid)
	})

	t.Run("limit order without price", func(t *testing.T) {
		d := marketDraft()
		d.IsMarketOrder = false
		r2 := r
		r2.MarketPrice = ""
		out := Derive(d, r2, p, now)
		assert.Equal(t, domain.ErrorInsertLimitPrice, out.Invalid)
	})

	t.Run("chunk below protocol minimum", func(t *testing.T) {
		d := marketDraft()
		d.SrcAmountUI = "30" // below the 50 USD minimum, maxChunks floors at 1
		out := Derive(d, r, p, now)
		assert.Equal(t, domain.ErrorChunkUSDTooSmall, out.Invalid)
	})

	t.Run("fill delay below minimum blocks", func(t *testing.T) {
		d := marketDraft()
		d.CustomFillDelay = &domain.TimeSpan{Unit: domain.UnitMinutes, Amount: 0}
		out := Derive(d, r, p, now)
		assert.Equal(t, domain.ErrorMinFillDelay, out.Invalid)
	})
}

func TestDerivePendingReadouts(t *testing.T) {
	now := time.Now()
	p := testParams()

	t.Run("loading price blocks without defaulting chunks", func(t *testing.T) {
		r := testReadouts()
		r.SrcUSD = domain.USDPrice{Loading: true}
		out := Derive(marketDraft(), r, p, now)
		assert.Equal(t, domain.StatePending, out.State)
		assert.Nil(t, out.Submit)
		assert.Zero(t, out.MaxChunks)
	})

	t.Run("missing balance blocks", func(t *testing.T) {
		r := testReadouts()
		r.SrcBalance = ""
		out := Derive(marketDraft(), r, p, now)
		assert.Equal(t, domain.StatePending, out.State)
	})
}

func TestDerivePartialFillWarning(t *testing.T) {
	d := marketDraft()
	// 20 chunks x 5m = 100m, typed duration only 30m.
	d.TypedDuration = &domain.TimeSpan{Unit: domain.UnitMinutes, Amount: 30}

	out := Derive(d, testReadouts(), testParams(), time.Now())
	require.Equal(t, domain.StateValid, out.State, "partial fill is a warning, not an error")
	assert.Contains(t, out.Warnings, domain.WarnPartialFill)
}

func TestDeriveRecomputesFromSnapshot(t *testing.T) {
	// Derivations must be a pure function of the draft snapshot: deriving a
	// modified copy never disturbs results for the original.
	now := time.Now()
	r := testReadouts()
	p := testParams()

	d1 := marketDraft()
	before := Derive(d1, r, p, now)
	_ = Derive(d1.WithSrcAmount("600"), r, p, now)
	after := Derive(d1, r, p, now)

	assert.Equal(t, before, after)
}
