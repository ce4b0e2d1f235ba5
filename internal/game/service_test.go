package game_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/internal/game"
	"stocksim/internal/market"
	"stocksim/internal/metrics"
	"stocksim/internal/store"
)

// stubQuotes serves fixed prices so settlement tests are deterministic.
type stubQuotes struct {
	prices map[string]float64
}

func (s stubQuotes) GetOrCreate(symbol string) market.Quote {
	p, ok := s.prices[symbol]
	if !ok {
		p = 100
	}
	return market.Quote{Symbol: symbol, Price: p, Timestamp: time.Now()}
}

func newTestService(t *testing.T, prices map[string]float64) (*game.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := game.NewService(mem, stubQuotes{prices: prices}, nil)
	return svc, mem
}

func ensureUser(t *testing.T, svc *game.Service, id, first string) {
	t.Helper()
	err := svc.EnsureAccount(context.Background(), game.Profile{
		UserID:    id,
		Email:     id + "@example.com",
		FirstName: first,
	})
	require.NoError(t, err)
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	svc, mem := newTestService(t, nil)
	ctx := context.Background()

	ensureUser(t, svc, "u1", "Asha")
	_, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "RELI", Side: game.SideBuy, Quantity: 1})
	require.NoError(t, err)

	ensureUser(t, svc, "u1", "Asha")
	acct, err := mem.Account(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, acct.Balance.Equal(game.DefaultBalance), "re-ensure must not reset the balance")
}

func TestExecuteTradeBuy(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"RELI": 250})
	ctx := context.Background()
	ensureUser(t, svc, "u1", "Asha")

	res, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "reli", Side: game.SideBuy, Quantity: 10})
	require.NoError(t, err)

	assert.True(t, res.Balance.Equal(decimal.NewFromInt(97500)), "balance %s", res.Balance)
	require.NotNil(t, res.Position)
	assert.Equal(t, "RELI", res.Position.Symbol)
	assert.Equal(t, int64(10), res.Position.Quantity)
	assert.True(t, res.Position.AvgPrice.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, int64(10), res.XP)
	assert.Equal(t, int64(1), res.Level)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, game.BadgeFirstTrade, res.NewBadges[0].Name)
}

func TestExecuteTradeRejectsWithoutMutation(t *testing.T) {
	svc, mem := newTestService(t, map[string]float64{"RELI": 250})
	ctx := context.Background()
	ensureUser(t, svc, "u1", "Asha")

	_, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "RELI", Side: game.SideBuy, Quantity: 1_000_000})
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)

	_, err = svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "RELI", Side: game.SideSell, Quantity: 1})
	assert.ErrorIs(t, err, game.ErrInsufficientShares)

	_, err = svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "RELI", Side: game.SideBuy, Quantity: 0})
	assert.ErrorIs(t, err, game.ErrInvalidQuantity)

	acct, err := mem.Account(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(game.DefaultBalance), "rejected trades must not touch the balance")
	txns, err := svc.Transactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, txns)
	g, err := svc.Gamification(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, g.XP, "rejected trades earn no XP")
}

func TestExecuteTradeRejectsReplayedOrder(t *testing.T) {
	svc, mem := newTestService(t, map[string]float64{"RELI": 100})
	ctx := context.Background()
	ensureUser(t, svc, "u1", "Asha")

	in := game.TradeInput{UserID: "u1", Symbol: "RELI", Side: game.SideBuy, Quantity: 1, IdempotencyKey: "order-1"}
	_, err := svc.ExecuteTrade(ctx, in)
	require.NoError(t, err)

	_, err = svc.ExecuteTrade(ctx, in)
	assert.ErrorIs(t, err, game.ErrDuplicateIdempotency)

	acct, err := mem.Account(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(99_900)), "the original trade stands, the replay applies nothing")
	txns, err := svc.Transactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestBuyThenSellRestoresBalance(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"TCS": 333.33})
	ctx := context.Background()
	ensureUser(t, svc, "u1", "Asha")

	_, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "TCS", Side: game.SideBuy, Quantity: 7})
	require.NoError(t, err)
	res, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "TCS", Side: game.SideSell, Quantity: 7})
	require.NoError(t, err)

	assert.True(t, res.Balance.Equal(game.DefaultBalance), "got %s", res.Balance)
	assert.Nil(t, res.Position, "selling the last share closes the position")

	view, err := svc.Portfolio(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Positions)
	assert.True(t, view.TotalValue.Equal(view.Cash), "empty portfolio values to exactly the cash balance")
}

func TestPortfolioValuation(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"RELI": 100, "TCS": 50})
	ctx := context.Background()
	ensureUser(t, svc, "u1", "Asha")

	_, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "RELI", Side: game.SideBuy, Quantity: 10})
	require.NoError(t, err)
	_, err = svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "TCS", Side: game.SideBuy, Quantity: 20})
	require.NoError(t, err)

	view, err := svc.Portfolio(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Positions, 2)

	// 100_000 - 1000 - 1000 cash, 2000 in stock.
	assert.True(t, view.Cash.Equal(decimal.NewFromInt(98_000)))
	assert.True(t, view.StockValue.Equal(decimal.NewFromInt(2_000)))
	assert.True(t, view.TotalValue.Equal(decimal.NewFromInt(100_000)))
	assert.True(t, view.TotalProfitLoss.IsZero())
}

func TestTransactionsNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"RELI": 100})
	ctx := context.Background()
	ensureUser(t, svc, "u1", "Asha")

	for i := 0; i < 3; i++ {
		_, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "RELI", Side: game.SideBuy, Quantity: 1})
		require.NoError(t, err)
	}
	txns, err := svc.Transactions(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	for i := 1; i < len(txns); i++ {
		assert.False(t, txns[i].CreatedAt.After(txns[i-1].CreatedAt), "history must be newest first")
	}
}

func TestLeaderboardRanking(t *testing.T) {
	prices := map[string]float64{"BLUE": 500}
	svc, _ := newTestService(t, prices)
	ctx := context.Background()

	ensureUser(t, svc, "alice", "Alice")
	ensureUser(t, svc, "bob", "Bob")

	// bob: 50,000 cash + 100 shares bought at 500.
	_, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "bob", Symbol: "BLUE", Side: game.SideBuy, Quantity: 100})
	require.NoError(t, err)

	// The market moves up; bob's holdings now beat alice's idle cash.
	prices["BLUE"] = 600

	rows, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "bob", rows[0].UserID)
	assert.True(t, rows[0].TotalValue.Equal(decimal.NewFromInt(110_000)), "got %s", rows[0].TotalValue)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, "alice", rows[1].UserID)
	assert.True(t, rows[1].TotalValue.Equal(decimal.NewFromInt(100_000)))
}

func TestLeaderboardTieBreaksOnUserID(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	ensureUser(t, svc, "zed", "Zed")
	ensureUser(t, svc, "amy", "Amy")

	rows, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "amy", rows[0].UserID)
	assert.Equal(t, "zed", rows[1].UserID)
}

// cancelAwareStore fails cross-user reads once the context is done, the
// way a real pool would.
type cancelAwareStore struct {
	game.Store
}

func (s cancelAwareStore) AllAccounts(ctx context.Context) ([]game.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.AllAccounts(ctx)
}

func TestLeaderboardOutlivesCallerCancellation(t *testing.T) {
	mem := store.NewMemory()
	svc := game.NewService(cancelAwareStore{Store: mem}, stubQuotes{}, nil)
	require.NoError(t, svc.EnsureAccount(context.Background(), game.Profile{UserID: "u1", Email: "u1@example.com"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows, err := svc.Leaderboard(ctx)
	require.NoError(t, err, "a hung-up caller must not fail the shared computation")
	assert.Len(t, rows, 1)
}

func TestLeaderboardBuildCounter(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ensureUser(t, svc, "u1", "Asha")

	before := testutil.ToFloat64(metrics.LeaderboardBuilds)
	_, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LeaderboardBuilds))
}

func TestResetAccount(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"RELI": 100})
	ctx := context.Background()
	ensureUser(t, svc, "u1", "Asha")

	_, err := svc.ExecuteTrade(ctx, game.TradeInput{UserID: "u1", Symbol: "RELI", Side: game.SideBuy, Quantity: 5})
	require.NoError(t, err)

	require.NoError(t, svc.ResetAccount(ctx, "u1"))

	view, err := svc.Portfolio(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, view.Cash.Equal(game.DefaultBalance))
	assert.Empty(t, view.Positions)

	txns, err := svc.Transactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, txns)

	g, err := svc.Gamification(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, g.XP)
	assert.Empty(t, g.Badges)
	assert.Equal(t, int64(1), g.Level)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	ensureUser(t, svc, "u1", "Asha")

	last := "Rao"
	p, err := svc.UpdateProfile(ctx, "u1", game.ProfileUpdate{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Asha", p.FirstName, "unset fields stay put")
	assert.Equal(t, "Rao", p.LastName)

	_, err = svc.UpdateProfile(ctx, "ghost", game.ProfileUpdate{LastName: &last})
	assert.ErrorIs(t, err, game.ErrAccountNotFound)
}
