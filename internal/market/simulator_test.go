package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	return NewSeeded(nil, 42)
}

func TestSeedUniverse(t *testing.T) {
	sim := newTestSimulator(t)
	assert.Equal(t, seedUniverseSize, sim.UniverseSize())

	for sym, st := range sim.stocks {
		assert.GreaterOrEqual(t, st.price, minBasePrice, "symbol %s", sym)
		assert.Less(t, st.price, minBasePrice+basePriceSpan, "symbol %s", sym)
	}
}

func TestGetOrCreateIsStable(t *testing.T) {
	sim := newTestSimulator(t)

	first := sim.GetOrCreate("reli")
	second := sim.GetOrCreate("RELI")
	assert.Equal(t, "RELI", first.Symbol)
	assert.Equal(t, first.Price, second.Price, "reads must not move the price")
}

func TestGetOrCreateSynthesizesUnknownSymbol(t *testing.T) {
	sim := newTestSimulator(t)

	q := sim.GetOrCreate("NOSUCH")
	assert.Equal(t, "NOSUCH", q.Symbol)
	assert.GreaterOrEqual(t, q.Price, minBasePrice)
	assert.Less(t, q.Price, minBasePrice+basePriceSpan)
	assert.Equal(t, seedUniverseSize+1, sim.UniverseSize())

	again := sim.GetOrCreate("NOSUCH")
	assert.Equal(t, q.Price, again.Price)
	assert.Equal(t, seedUniverseSize+1, sim.UniverseSize())
}

func TestTickStaysWithinVolatilityBand(t *testing.T) {
	sim := newTestSimulator(t)

	prev := sim.GetOrCreate("TCS").Price
	for i := 0; i < 500; i++ {
		q := sim.Tick("TCS")
		ratio := q.Price / prev
		assert.InDelta(t, 1.0, ratio, StockVolatility/2+0.0001)
		assert.Greater(t, q.Price, 0.0)
		prev = q.Price
	}
}

func TestTopStocksSortedByChangePercent(t *testing.T) {
	sim := newTestSimulator(t)

	stocks := sim.TopStocks()
	require.Len(t, stocks, seedUniverseSize)
	for i := 1; i < len(stocks); i++ {
		assert.GreaterOrEqual(t, stocks[i-1].ChangePercent, stocks[i].ChangePercent)
	}
}

func TestIndices(t *testing.T) {
	sim := newTestSimulator(t)

	indices := sim.Indices(Range1H)
	require.Len(t, indices, 2)
	assert.Equal(t, "NIFTY50", indices[0].Name)
	assert.Equal(t, "SENSEX", indices[1].Name)
	assert.InDelta(t, 22500, indices[0].Value, 22500*IndexVolatility)
	assert.InDelta(t, 74000, indices[1].Value, 74000*IndexVolatility)
}

func TestHistoryShape(t *testing.T) {
	cases := []struct {
		r        TimeRange
		points   int
		interval time.Duration
	}{
		{Range1H, 60, time.Minute},
		{Range10H, 60, 10 * time.Minute},
		{Range1D, 24, time.Hour},
		{Range1M, 30, 24 * time.Hour},
		{Range1Y, 12, 30 * 24 * time.Hour},
		{Range10Y, 10, 365 * 24 * time.Hour},
	}

	for _, tc := range cases {
		t.Run(string(tc.r), func(t *testing.T) {
			sim := newTestSimulator(t)
			indices := sim.Indices(tc.r)
			require.NotEmpty(t, indices)
			hist := indices[0].History
			require.Len(t, hist, tc.points)

			for i := 1; i < len(hist); i++ {
				gap := hist[i].Timestamp - hist[i-1].Timestamp
				assert.Equal(t, tc.interval.Milliseconds(), gap)
			}
			last := hist[len(hist)-1]
			assert.Equal(t, indices[0].Value, last.Value, "newest point must match the live value")
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	assert.Equal(t, Range1D, ParseTimeRange("1d"))
	assert.Equal(t, Range1H, ParseTimeRange(""))
	assert.Equal(t, Range1H, ParseTimeRange("bogus"))
}
