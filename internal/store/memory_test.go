package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/internal/game"
)

func seedAccount(t *testing.T, m *Memory, userID string) {
	t.Helper()
	err := m.EnsureAccount(context.Background(), game.Profile{UserID: userID, Email: userID + "@example.com"}, game.DefaultBalance)
	require.NoError(t, err)
}

func tradeApp(userID, symbol string, qty int64, balance string) game.TradeApplication {
	now := time.Now()
	price := decimal.NewFromInt(100)
	return game.TradeApplication{
		UserID:     userID,
		NewBalance: decimal.RequireFromString(balance),
		Position: game.Position{
			UserID: userID, Symbol: symbol, Quantity: qty, AvgPrice: price, UpdatedAt: now,
		},
		Transaction: game.Transaction{
			ID: symbol + "-txn", UserID: userID, Symbol: symbol, Side: game.SideBuy,
			Quantity: qty, Price: price, Total: price.Mul(decimal.NewFromInt(qty)), CreatedAt: now,
		},
		Gamification:   game.GamificationState{XP: 10, Level: 1, DailyStreak: 1, TradeStreak: 1, LastActive: now, LastTradeDay: now},
		IdempotencyKey: uuid.NewString(),
	}
}

func TestMemoryApplyTradeUnknownAccount(t *testing.T) {
	m := NewMemory()
	err := m.ApplyTrade(context.Background(), tradeApp("ghost", "RELI", 1, "99900"))
	assert.ErrorIs(t, err, game.ErrAccountNotFound)
}

func TestMemoryApplyTradeRejectsReplayedKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAccount(t, m, "u1")

	app := tradeApp("u1", "RELI", 1, "99900")
	require.NoError(t, m.ApplyTrade(ctx, app))

	replay := tradeApp("u1", "RELI", 2, "99800")
	replay.IdempotencyKey = app.IdempotencyKey
	assert.ErrorIs(t, m.ApplyTrade(ctx, replay), game.ErrDuplicateIdempotency)

	acct, err := m.Account(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("99900")), "replay must not move the balance")
	txns, err := m.Transactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestMemoryBadgesAccumulateAcrossTrades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAccount(t, m, "u1")

	app := tradeApp("u1", "RELI", 1, "99900")
	app.NewBadges = []game.Badge{{UserID: "u1", Name: game.BadgeFirstTrade, AwardedAt: time.Now()}}
	require.NoError(t, m.ApplyTrade(ctx, app))

	app2 := tradeApp("u1", "TCS", 1, "99800")
	app2.NewBadges = []game.Badge{{UserID: "u1", Name: game.BadgeLevel5, AwardedAt: time.Now()}}
	require.NoError(t, m.ApplyTrade(ctx, app2))

	g, err := m.Gamification(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, g.Badges, 2)
	assert.Equal(t, game.BadgeFirstTrade, g.Badges[0].Name)
	assert.Equal(t, game.BadgeLevel5, g.Badges[1].Name)
}

func TestMemoryPutGamificationKeepsBadges(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAccount(t, m, "u1")

	app := tradeApp("u1", "RELI", 1, "99900")
	app.NewBadges = []game.Badge{{UserID: "u1", Name: game.BadgeFirstTrade, AwardedAt: time.Now()}}
	require.NoError(t, m.ApplyTrade(ctx, app))

	require.NoError(t, m.PutGamification(ctx, "u1", game.GamificationState{XP: 10, Level: 1, DailyStreak: 2}))
	g, err := m.Gamification(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, g.Badges, 1, "activity updates must not drop badges")
	assert.Equal(t, int64(2), g.DailyStreak)
}

func TestMemoryTransactionsLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAccount(t, m, "u1")

	for _, sym := range []string{"A", "B", "C"} {
		require.NoError(t, m.ApplyTrade(ctx, tradeApp("u1", sym, 1, "99000")))
	}
	txns, err := m.Transactions(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "C-txn", txns[0].ID, "newest first")
}

func TestMemoryCloseRemovesPosition(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAccount(t, m, "u1")

	require.NoError(t, m.ApplyTrade(ctx, tradeApp("u1", "RELI", 5, "99500")))
	app := tradeApp("u1", "RELI", 0, "100000")
	app.ClosePosition = true
	require.NoError(t, m.ApplyTrade(ctx, app))

	positions, err := m.Positions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, positions)
}
