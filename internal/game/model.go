package game

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBalance is the simulated cash every account starts with and
// returns to on reset.
var DefaultBalance = decimal.NewFromInt(100_000)

const (
	// XPPerTrade is awarded for every executed trade, buy or sell.
	XPPerTrade = 10
	// XPPerLevel is the flat XP width of one level.
	XPPerLevel = 100
)

var (
	ErrInvalidSymbol      = errors.New("symbol must be 1-12 uppercase letters or digits")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrInvalidSide        = errors.New("side must be buy or sell")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUnauthorized       = errors.New("unauthorized")

	// ErrDuplicateIdempotency marks a replayed order whose key was
	// already claimed; the original trade stands and nothing re-applies.
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
)

var symbolRE = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol accepts short uppercase alphanumeric tickers. Unknown
// symbols are fine everywhere; malformed ones are not.
func ValidateSymbol(symbol string) error {
	if !symbolRE.MatchString(symbol) {
		return ErrInvalidSymbol
	}
	return nil
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalizes a side string.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", ErrInvalidSide
	}
}

// Account is one user's simulated cash balance.
type Account struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Position is one user's holding in one symbol. Quantity is always
// positive; a closed position is deleted, never stored at zero.
type Position struct {
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is an immutable record of one executed trade.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// Profile is the user-facing identity attached to an account.
type Profile struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// DisplayName renders a profile as "First Last", falling back to the
// email local part when both names are empty.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	if at := strings.IndexByte(p.Email, '@'); at > 0 {
		return p.Email[:at]
	}
	return p.UserID
}

// ProfileUpdate carries partial profile edits; nil fields are untouched.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Badge is a one-time gamification award.
type Badge struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	AwardedAt time.Time `json:"awarded_at"`
}

// Well-known badge names.
const (
	BadgeFirstTrade = "first_trade"
	BadgeLevel5     = "level_5"
	BadgeLevel10    = "level_10"
	BadgeStreak7    = "streak_7"
)

// GamificationState is the full XP, level, streak and badge state for
// one user. The zero value is a valid fresh state.
type GamificationState struct {
	XP                 int64     `json:"xp"`
	Level              int64     `json:"level"`
	DailyStreak        int64     `json:"daily_streak"`
	LongestDailyStreak int64     `json:"longest_daily_streak"`
	TradeStreak        int64     `json:"trade_streak"`
	LongestTradeStreak int64     `json:"longest_trade_streak"`
	LastActive         time.Time `json:"last_active"`
	LastTradeDay       time.Time `json:"last_trade_day"`
	Badges             []Badge   `json:"badges,omitempty"`
}

// LevelForXP converts accumulated XP to a 1-based level.
func LevelForXP(xp int64) int64 {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}
