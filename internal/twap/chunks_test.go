package twap

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMaxChunks(t *testing.T) {
	tests := []struct {
		name        string
		srcUSD      string
		minChunkUSD string
		want        int64
	}{
		{"exact multiple", "1000", "50", 20},
		{"floors remainder", "1099", "50", 21},
		{"below minimum floors at one", "30", "50", 1},
		{"zero amount", "0", "50", 0},
		{"negative amount", "-5", "50", 0},
		{"unknown minimum", "1000", "0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxChunks(dec(tt.srcUSD), dec(tt.minChunkUSD)))
		})
	}
}

func TestResolveChunks(t *testing.T) {
	req := func(n int64) *int64 { return &n }

	tests := []struct {
		name       string
		requested  *int64
		maxChunks  int64
		limitPanel bool
		want       int64
	}{
		{"defaults to max", nil, 20, false, 20},
		{"clamps above max", req(25), 20, false, 20},
		{"clamps below one", req(0), 20, false, 1},
		{"within range", req(7), 20, false, 7},
		{"limit panel forces one", req(7), 20, true, 1},
		{"no chunks possible", req(3), 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveChunks(tt.requested, tt.maxChunks, tt.limitPanel))
		})
	}
}

func TestSrcChunkAmount(t *testing.T) {
	assert.Equal(t, "333333", SrcChunkAmount("1000000", 3))
	assert.Equal(t, "500000", SrcChunkAmount("1000000", 2))
	assert.Equal(t, "0", SrcChunkAmount("2", 3)) // floors to zero
	assert.Equal(t, "0", SrcChunkAmount("", 3))
	assert.Equal(t, "0", SrcChunkAmount("1000000", 0))
}

func TestTotalChunksRoundTrip(t *testing.T) {
	// ceil(srcAmount / floor(srcAmount/c)) == c unless the chunk floors to 0.
	amounts := []string{"1000000", "999999", "1", "123456789123456789"}
	for _, amt := range amounts {
		for c := int64(1); c <= 10; c++ {
			chunk := SrcChunkAmount(amt, c)
			if chunk == "0" {
				continue
			}
			require.Equal(t, c, TotalChunks(amt, chunk),
				"amount=%s chunks=%d chunk=%s", amt, c, chunk)
		}
	}
}

func TestTotalChunksScenario(t *testing.T) {
	// 1,000,000 base units over 3 chunks: chunk 333,333, reconstructed 3.
	chunk := SrcChunkAmount("1000000", 3)
	assert.Equal(t, "333333", chunk)
	assert.Equal(t, int64(3), TotalChunks("1000000", chunk))
}
