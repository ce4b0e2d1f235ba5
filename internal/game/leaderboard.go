package game

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"stocksim/internal/metrics"
)

// LeaderboardRow is one ranked user.
type LeaderboardRow struct {
	Rank       int             `json:"rank"`
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Cash       decimal.Decimal `json:"cash"`
	StockValue decimal.Decimal `json:"stock_value"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Leaderboard ranks every user by total value (cash plus holdings at the
// current simulated prices), highest first, ties broken by user id
// ascending. Concurrent calls share one computation.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	v, err, _ := s.lbGroup.Do("leaderboard", func() (any, error) {
		// The flight is shared: the first caller hanging up must not
		// cancel everyone coalesced behind it.
		return s.computeLeaderboard(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.([]LeaderboardRow), nil
}

func (s *Service) computeLeaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	accounts, err := s.store.AllAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	positions, err := s.store.AllPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	cash := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		cash[a.UserID] = a.Balance
	}

	// Price each distinct held symbol once; unknown symbols synthesize
	// instead of failing, so no position can break the board.
	prices := make(map[string]decimal.Decimal)
	holdings := make(map[string]decimal.Decimal)
	for _, p := range positions {
		price, ok := prices[p.Symbol]
		if !ok {
			price = decimal.NewFromFloat(s.quotes.GetOrCreate(p.Symbol).Price)
			prices[p.Symbol] = price
		}
		value := price.Mul(decimal.NewFromInt(p.Quantity))
		holdings[p.UserID] = holdings[p.UserID].Add(value)
		if _, ok := cash[p.UserID]; !ok {
			s.log.Warn("positions without account row, counting cash as zero", "user_id", p.UserID)
			cash[p.UserID] = decimal.Zero
		}
	}

	userIDs := make([]string, 0, len(cash))
	for id := range cash {
		userIDs = append(userIDs, id)
	}
	profiles, err := s.store.ProfilesByID(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	rows := make([]LeaderboardRow, 0, len(cash))
	for _, id := range userIDs {
		name := id
		if p, ok := profiles[id]; ok {
			name = p.DisplayName()
		}
		stock := holdings[id]
		row := LeaderboardRow{
			UserID:     id,
			Name:       name,
			Cash:       cash[id].Round(2),
			StockValue: stock.Round(2),
			TotalValue: cash[id].Add(stock).Round(2),
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].TotalValue.Equal(rows[j].TotalValue) {
			return rows[i].TotalValue.GreaterThan(rows[j].TotalValue)
		}
		return rows[i].UserID < rows[j].UserID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	metrics.LeaderboardBuilds.Inc()
	return rows, nil
}
