package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stocksim/internal/game"
)

// Memory is an in-process implementation of game.Store backed by
// mutex-guarded maps. It serves tests and dev mode; every read hands out
// copies so callers can never alias internal state.
type Memory struct {
	mu        sync.RWMutex
	accounts  map[string]game.Account
	positions map[string]map[string]game.Position // user id -> symbol
	txns      map[string][]game.Transaction       // newest first
	profiles  map[string]game.Profile
	gamify    map[string]game.GamificationState
	idem      map[string]map[string]struct{} // user id -> claimed keys
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[string]game.Account),
		positions: make(map[string]map[string]game.Position),
		txns:      make(map[string][]game.Transaction),
		profiles:  make(map[string]game.Profile),
		gamify:    make(map[string]game.GamificationState),
		idem:      make(map[string]map[string]struct{}),
	}
}

var _ game.Store = (*Memory)(nil)

func (m *Memory) EnsureAccount(_ context.Context, profile game.Profile, startingBalance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[profile.UserID]; !ok {
		now := time.Now()
		m.accounts[profile.UserID] = game.Account{
			UserID:    profile.UserID,
			Balance:   startingBalance,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if _, ok := m.profiles[profile.UserID]; !ok {
		m.profiles[profile.UserID] = profile
	}
	if _, ok := m.gamify[profile.UserID]; !ok {
		m.gamify[profile.UserID] = game.GamificationState{Level: 1}
	}
	return nil
}

func (m *Memory) Account(_ context.Context, userID string) (game.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[userID]
	if !ok {
		return game.Account{}, game.ErrAccountNotFound
	}
	return acct, nil
}

func (m *Memory) Positions(_ context.Context, userID string) ([]game.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bySymbol := m.positions[userID]
	out := make([]game.Position, 0, len(bySymbol))
	for _, p := range bySymbol {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *Memory) Transactions(_ context.Context, userID string, limit int) ([]game.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txns := m.txns[userID]
	if limit > 0 && limit < len(txns) {
		txns = txns[:limit]
	}
	out := make([]game.Transaction, len(txns))
	copy(out, txns)
	return out, nil
}

func (m *Memory) Profile(_ context.Context, userID string) (game.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return game.Profile{}, game.ErrAccountNotFound
	}
	return p, nil
}

func (m *Memory) Gamification(_ context.Context, userID string) (game.GamificationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamify[userID]
	if !ok {
		return game.GamificationState{Level: 1}, nil
	}
	g.Badges = append([]game.Badge(nil), g.Badges...)
	return g, nil
}

func (m *Memory) ApplyTrade(_ context.Context, app game.TradeApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if app.IdempotencyKey == "" {
		return errors.New("idempotency key is required")
	}
	if _, claimed := m.idem[app.UserID][app.IdempotencyKey]; claimed {
		return game.ErrDuplicateIdempotency
	}
	acct, ok := m.accounts[app.UserID]
	if !ok {
		return game.ErrAccountNotFound
	}
	keys := m.idem[app.UserID]
	if keys == nil {
		keys = make(map[string]struct{})
		m.idem[app.UserID] = keys
	}
	keys[app.IdempotencyKey] = struct{}{}
	acct.Balance = app.NewBalance
	acct.UpdatedAt = app.Transaction.CreatedAt
	m.accounts[app.UserID] = acct

	bySymbol := m.positions[app.UserID]
	if bySymbol == nil {
		bySymbol = make(map[string]game.Position)
		m.positions[app.UserID] = bySymbol
	}
	if app.ClosePosition {
		delete(bySymbol, app.Position.Symbol)
	} else {
		bySymbol[app.Position.Symbol] = app.Position
	}

	m.txns[app.UserID] = append([]game.Transaction{app.Transaction}, m.txns[app.UserID]...)

	g := app.Gamification
	g.Badges = append(m.gamify[app.UserID].Badges, app.NewBadges...)
	m.gamify[app.UserID] = g
	return nil
}

func (m *Memory) ResetAccount(_ context.Context, userID string, startingBalance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return game.ErrAccountNotFound
	}
	acct.Balance = startingBalance
	acct.UpdatedAt = time.Now()
	m.accounts[userID] = acct

	delete(m.positions, userID)
	delete(m.txns, userID)
	m.gamify[userID] = game.GamificationState{Level: 1}
	return nil
}

func (m *Memory) UpdateProfile(_ context.Context, userID string, update game.ProfileUpdate) (game.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return game.Profile{}, game.ErrAccountNotFound
	}
	if update.FirstName != nil {
		p.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		p.LastName = *update.LastName
	}
	if update.AvatarURL != nil {
		p.AvatarURL = *update.AvatarURL
	}
	m.profiles[userID] = p
	return p, nil
}

func (m *Memory) PutGamification(_ context.Context, userID string, g game.GamificationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.gamify[userID]
	g.Badges = existing.Badges
	m.gamify[userID] = g
	return nil
}

func (m *Memory) AllAccounts(_ context.Context) ([]game.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]game.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *Memory) AllPositions(_ context.Context) ([]game.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []game.Position
	for _, bySymbol := range m.positions {
		for _, p := range bySymbol {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

func (m *Memory) ProfilesByID(_ context.Context, userIDs []string) (map[string]game.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]game.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
