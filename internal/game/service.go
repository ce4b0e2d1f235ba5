package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"stocksim/internal/market"
)

// Quoter is the slice of the price simulator the game service needs.
type Quoter interface {
	GetOrCreate(symbol string) market.Quote
}

// Service wires the store and the price simulator into the game
// operations the API exposes. It holds no mutable game state of its own.
type Service struct {
	store  Store
	quotes Quoter
	log    *slog.Logger
	now    func() time.Time

	// Overlapping leaderboard computations coalesce onto one flight
	// instead of each fanning out their own cross-user reads.
	lbGroup singleflight.Group
}

func NewService(store Store, quotes Quoter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		quotes: quotes,
		log:    logger,
		now:    time.Now,
	}
}

// EnsureAccount provisions the account, profile and gamification rows at
// signup or first login, then counts the login toward the daily streak.
func (s *Service) EnsureAccount(ctx context.Context, profile Profile) error {
	if err := s.store.EnsureAccount(ctx, profile, DefaultBalance); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return s.TouchActivity(ctx, profile.UserID)
}

// TouchActivity records non-trading activity for the daily streak.
func (s *Service) TouchActivity(ctx context.Context, userID string) error {
	g, err := s.store.Gamification(ctx, userID)
	if err != nil {
		return fmt.Errorf("load gamification: %w", err)
	}
	next := touchActivity(g, s.now())
	if err := s.store.PutGamification(ctx, userID, next); err != nil {
		return fmt.Errorf("update gamification: %w", err)
	}
	return nil
}

// PortfolioPosition is one holding priced at the current market.
type PortfolioPosition struct {
	Symbol             string          `json:"symbol"`
	Quantity           int64           `json:"quantity"`
	AvgPrice           decimal.Decimal `json:"avg_price"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	CurrentValue       decimal.Decimal `json:"current_value"`
	ProfitLoss         decimal.Decimal `json:"profit_loss"`
	ProfitLossPerShare decimal.Decimal `json:"profit_loss_per_share"`
}

// PortfolioView is the full on-demand valuation of one account.
type PortfolioView struct {
	Cash            decimal.Decimal     `json:"cash"`
	StockValue      decimal.Decimal     `json:"stock_value"`
	TotalValue      decimal.Decimal     `json:"total_value"`
	TotalProfitLoss decimal.Decimal     `json:"total_profit_loss"`
	Positions       []PortfolioPosition `json:"positions"`
}

// Portfolio values every holding at the simulator's current price.
// Valuation is recomputed on every call and never cached; an empty
// portfolio values to exactly the cash balance.
func (s *Service) Portfolio(ctx context.Context, userID string) (PortfolioView, error) {
	var out PortfolioView
	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("load account: %w", err)
	}
	positions, err := s.store.Positions(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("load positions: %w", err)
	}

	out.Cash = acct.Balance.Round(2)
	out.StockValue = decimal.Zero
	out.TotalProfitLoss = decimal.Zero
	for _, pos := range positions {
		price := decimal.NewFromFloat(s.quotes.GetOrCreate(pos.Symbol).Price)
		qty := decimal.NewFromInt(pos.Quantity)
		value := price.Mul(qty)
		cost := pos.AvgPrice.Mul(qty)
		pl := value.Sub(cost)

		out.StockValue = out.StockValue.Add(value)
		out.TotalProfitLoss = out.TotalProfitLoss.Add(pl)
		out.Positions = append(out.Positions, PortfolioPosition{
			Symbol:             pos.Symbol,
			Quantity:           pos.Quantity,
			AvgPrice:           pos.AvgPrice.Round(2),
			CurrentPrice:       price,
			CurrentValue:       value.Round(2),
			ProfitLoss:         pl.Round(2),
			ProfitLossPerShare: price.Sub(pos.AvgPrice).Round(2),
		})
	}
	out.StockValue = out.StockValue.Round(2)
	out.TotalProfitLoss = out.TotalProfitLoss.Round(2)
	out.TotalValue = out.Cash.Add(out.StockValue)
	return out, nil
}

// TradeInput is one buy or sell request. IdempotencyKey dedupes
// replays of the same order; a key is generated when the caller sends
// none.
type TradeInput struct {
	UserID         string
	Symbol         string
	Side           Side
	Quantity       int64
	IdempotencyKey string
}

// TradeResult is the authoritative post-trade state. Clients render it
// directly instead of re-fetching and hoping nothing raced.
type TradeResult struct {
	Transaction Transaction     `json:"transaction"`
	Balance     decimal.Decimal `json:"balance"`
	Position    *Position       `json:"position,omitempty"` // nil when the sell closed it
	XP          int64           `json:"xp"`
	Level       int64           `json:"level"`
	NewBadges   []Badge         `json:"new_badges,omitempty"`
}

// ExecuteTrade prices the symbol, settles the trade, advances
// gamification, and commits the whole effect through one transactional
// store call. Validation failures return a sentinel error and mutate
// nothing.
func (s *Service) ExecuteTrade(ctx context.Context, in TradeInput) (TradeResult, error) {
	var out TradeResult
	in.Symbol = NormalizeSymbol(in.Symbol)
	if err := ValidateSymbol(in.Symbol); err != nil {
		return out, err
	}
	if in.Quantity <= 0 {
		return out, ErrInvalidQuantity
	}
	if in.Side != SideBuy && in.Side != SideSell {
		return out, ErrInvalidSide
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		in.IdempotencyKey = uuid.NewString()
	}

	acct, err := s.store.Account(ctx, in.UserID)
	if err != nil {
		return out, fmt.Errorf("load account: %w", err)
	}
	positions, err := s.store.Positions(ctx, in.UserID)
	if err != nil {
		return out, fmt.Errorf("load positions: %w", err)
	}
	var existing *Position
	for i := range positions {
		if positions[i].Symbol == in.Symbol {
			existing = &positions[i]
			break
		}
	}

	price := decimal.NewFromFloat(s.quotes.GetOrCreate(in.Symbol).Price)
	now := s.now()

	var (
		newBalance decimal.Decimal
		nextPos    Position
		closed     bool
	)
	switch in.Side {
	case SideBuy:
		newBalance, nextPos, err = applyBuy(acct.Balance, existing, in.Quantity, price)
	case SideSell:
		newBalance, nextPos, closed, err = applySell(acct.Balance, existing, in.Quantity, price)
	}
	if err != nil {
		return out, err
	}
	nextPos.UserID = in.UserID
	nextPos.Symbol = in.Symbol
	nextPos.UpdatedAt = now

	prior, err := s.store.Gamification(ctx, in.UserID)
	if err != nil {
		return out, fmt.Errorf("load gamification: %w", err)
	}
	after := advanceGamification(prior, now)
	badges := earnedBadges(prior, after, in.UserID, now)

	txn := Transaction{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Symbol:    in.Symbol,
		Side:      in.Side,
		Quantity:  in.Quantity,
		Price:     price,
		Total:     price.Mul(decimal.NewFromInt(in.Quantity)).Round(2),
		CreatedAt: now,
	}

	app := TradeApplication{
		UserID:         in.UserID,
		NewBalance:     newBalance,
		Position:       nextPos,
		ClosePosition:  closed,
		Transaction:    txn,
		Gamification:   after,
		NewBadges:      badges,
		IdempotencyKey: in.IdempotencyKey,
	}
	if err := s.store.ApplyTrade(ctx, app); err != nil {
		return out, fmt.Errorf("apply trade: %w", err)
	}

	s.log.Info("trade executed",
		"user_id", in.UserID,
		"symbol", in.Symbol,
		"side", in.Side,
		"quantity", in.Quantity,
		"price", price,
	)

	out.Transaction = txn
	out.Balance = newBalance.Round(2)
	if !closed {
		p := nextPos
		out.Position = &p
	}
	out.XP = after.XP
	out.Level = after.Level
	out.NewBadges = badges
	return out, nil
}

// Transactions returns the user's trade history, newest first.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	txns, err := s.store.Transactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txns, nil
}

// Gamification returns XP, streaks and badges with zero-value defaults
// when the user has no rows yet.
func (s *Service) Gamification(ctx context.Context, userID string) (GamificationState, error) {
	g, err := s.store.Gamification(ctx, userID)
	if err != nil {
		return GamificationState{}, fmt.Errorf("load gamification: %w", err)
	}
	if g.Level == 0 {
		g.Level = LevelForXP(g.XP)
	}
	return g, nil
}

// UpdateProfile applies partial profile edits for the owner.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (Profile, error) {
	p, err := s.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// GetProfile returns the caller's profile.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	p, err := s.store.Profile(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// ResetAccount puts the calling user back to a fresh account: default
// balance, no positions, no history, no badges, zeroed streaks.
func (s *Service) ResetAccount(ctx context.Context, userID string) error {
	if err := s.store.ResetAccount(ctx, userID, DefaultBalance); err != nil {
		return fmt.Errorf("reset account: %w", err)
	}
	s.log.Info("account reset", "user_id", userID)
	return nil
}
