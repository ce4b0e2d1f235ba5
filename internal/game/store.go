package game

import (
	"context"

	"github.com/shopspring/decimal"
)

// TradeApplication is the complete, pre-computed effect of one trade.
// The store commits it as a single transactional unit so a trade can
// never half-apply: balance, position, transaction record and
// gamification state land together or not at all.
type TradeApplication struct {
	UserID        string
	NewBalance    decimal.Decimal
	Position      Position
	ClosePosition bool // delete the position instead of upserting it
	Transaction   Transaction
	Gamification  GamificationState
	NewBadges     []Badge

	// IdempotencyKey is claimed inside the same transactional unit; a
	// key seen before fails the whole application with
	// ErrDuplicateIdempotency so offline replays cannot double-execute.
	IdempotencyKey string
}

// Store is the persistence collaborator for the game service. Reads are
// scoped to a single user except the cross-user leaderboard reads.
// Implementations live in internal/store.
type Store interface {
	// EnsureAccount provisions balance, profile and zeroed gamification
	// rows for a user. Idempotent: existing rows are left alone.
	EnsureAccount(ctx context.Context, profile Profile, startingBalance decimal.Decimal) error

	Account(ctx context.Context, userID string) (Account, error)
	Positions(ctx context.Context, userID string) ([]Position, error)
	Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	Profile(ctx context.Context, userID string) (Profile, error)
	Gamification(ctx context.Context, userID string) (GamificationState, error)

	// ApplyTrade commits one TradeApplication atomically, claiming its
	// idempotency key; a replayed key returns ErrDuplicateIdempotency
	// and changes nothing.
	ApplyTrade(ctx context.Context, app TradeApplication) error

	// ResetAccount restores the starting balance and wipes positions,
	// transactions, badges and gamification progress for one user.
	ResetAccount(ctx context.Context, userID string, startingBalance decimal.Decimal) error

	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (Profile, error)
	PutGamification(ctx context.Context, userID string, g GamificationState) error

	// Cross-user reads for the leaderboard.
	AllAccounts(ctx context.Context) ([]Account, error)
	AllPositions(ctx context.Context) ([]Position, error)
	ProfilesByID(ctx context.Context, userIDs []string) (map[string]Profile, error)
}
