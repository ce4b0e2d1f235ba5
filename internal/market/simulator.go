// Package market holds the in-process price simulator. All prices are
// synthetic: a universe of stocks plus two composite indices evolve by a
// proportional random walk on every tick. The simulator owns all shared
// price state and is safe for concurrent use; consumers receive it by
// injection rather than touching package-level globals.
package market

import (
	"log/slog"
	"math"
	mathrand "math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// StockVolatility is the per-tick proportional noise band for stocks.
	StockVolatility = 0.005
	// IndexVolatility is the smaller per-tick band for composite indices.
	IndexVolatility = 0.001

	minBasePrice  = 50.0
	basePriceSpan = 1000.0
)

// Stock is the externally visible state of one simulated equity.
type Stock struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// Quote is a point-in-time price for a single symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryPoint is one sample of an index history series.
type HistoryPoint struct {
	Timestamp int64   `json:"timestamp"` // unix milliseconds
	Value     float64 `json:"value"`
}

// Index is the externally visible state of one composite index.
type Index struct {
	Name          string         `json:"name"`
	Value         float64        `json:"value"`
	Change        float64        `json:"change"`
	ChangePercent float64        `json:"change_percent"`
	History       []HistoryPoint `json:"history"`
}

type stockState struct {
	symbol string
	name   string
	// price keeps full float precision between ticks; rounding happens
	// only at exposure so the walk does not compound rounding error.
	price     float64
	change    float64
	changePct float64
}

type indexState struct {
	name      string
	value     float64
	change    float64
	changePct float64
}

// Simulator owns the shared price universe. Stocks are created lazily the
// first time any caller asks for an unknown symbol, so every symbol string
// in the system resolves to a stable price instead of failing.
type Simulator struct {
	mu      sync.Mutex
	rand    *mathrand.Rand
	log     *slog.Logger
	stocks  map[string]*stockState
	indices []*indexState
	now     func() time.Time
}

// New creates a simulator pre-seeded with the default stock universe and
// the two composite indices.
func New(logger *slog.Logger) *Simulator {
	return NewSeeded(logger, time.Now().UnixNano())
}

// NewSeeded is New with a fixed RNG seed, for reproducible tests.
func NewSeeded(logger *slog.Logger, seed int64) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Simulator{
		rand:   mathrand.New(mathrand.NewSource(seed)),
		log:    logger,
		stocks: make(map[string]*stockState, seedUniverseSize),
		indices: []*indexState{
			{name: "NIFTY50", value: 22500.00},
			{name: "SENSEX", value: 74000.00},
		},
		now: time.Now,
	}
	s.seedUniverse()
	return s
}

// fluctuate applies one proportional random step. Callers must hold mu.
func (s *Simulator) fluctuate(v, volatility float64) float64 {
	return v * (1 + (s.rand.Float64()-0.5)*volatility)
}

// GetOrCreate returns the current quote for symbol, synthesizing a new
// stock with a randomized base price in [50, 1050) when the symbol is
// unknown. It never fails and never advances existing prices.
func (s *Simulator) GetOrCreate(symbol string) Quote {
	symbol = normalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(symbol)
	return Quote{Symbol: st.symbol, Price: round2(st.price), Timestamp: s.now()}
}

func (s *Simulator) getOrCreateLocked(symbol string) *stockState {
	if st, ok := s.stocks[symbol]; ok {
		return st
	}
	st := &stockState{
		symbol: symbol,
		name:   symbol + " Corporation",
		price:  minBasePrice + s.rand.Float64()*basePriceSpan,
	}
	s.stocks[symbol] = st
	s.log.Debug("synthesized stock", "symbol", symbol, "base_price", round2(st.price))
	return st
}

// Tick advances one symbol by a single fluctuation step and returns its
// new quote. Unknown symbols are synthesized first. Calling Tick twice
// yields two different prices: each call mutates shared state.
func (s *Simulator) Tick(symbol string) Quote {
	symbol = normalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(symbol)
	s.advanceLocked(st, StockVolatility)
	return Quote{Symbol: st.symbol, Price: round2(st.price), Timestamp: s.now()}
}

func (s *Simulator) advanceLocked(st *stockState, volatility float64) {
	old := st.price
	st.price = s.fluctuate(st.price, volatility)
	st.change = st.price - old
	st.changePct = st.change / old * 100
}

// TopStocks advances every stock in the universe by one tick and returns
// the full list sorted by change percent, best movers first.
func (s *Simulator) TopStocks() []Stock {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Stock, 0, len(s.stocks))
	for _, st := range s.stocks {
		s.advanceLocked(st, StockVolatility)
		out = append(out, Stock{
			Symbol:        st.symbol,
			Name:          st.name,
			Price:         round2(st.price),
			Change:        round2(st.change),
			ChangePercent: round2(st.changePct),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChangePercent != out[j].ChangePercent {
			return out[i].ChangePercent > out[j].ChangePercent
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Indices advances both composite indices by a low-volatility tick and
// regenerates their history series for the requested range. History is
// never persisted: each call produces a fresh plausible walk ending near
// the current index value.
func (s *Simulator) Indices(r TimeRange) []Index {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Index, 0, len(s.indices))
	for _, ix := range s.indices {
		old := ix.value
		ix.value = s.fluctuate(ix.value, IndexVolatility)
		ix.change = ix.value - old
		ix.changePct = ix.change / old * 100

		out = append(out, Index{
			Name:          ix.name,
			Value:         round2(ix.value),
			Change:        round2(ix.change),
			ChangePercent: round2(ix.changePct),
			History:       s.historyLocked(ix.value, r),
		})
	}
	return out
}

// UniverseSize reports how many stocks currently exist.
func (s *Simulator) UniverseSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stocks)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
