// Package store provides the persistence collaborator for the game
// service: a Postgres implementation for production and an in-memory
// implementation for tests and dev mode.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stocksim/internal/game"
)

// Postgres implements game.Store on a pgx pool. Multi-row writes run in
// serializable transactions and retry on serialization conflicts.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, log: logger}
}

var _ game.Store = (*Postgres)(nil)

// EnsureSchema creates the tables on first boot. Safe to call on every
// start.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS sim;

		CREATE TABLE IF NOT EXISTS sim.accounts (
			user_id    text PRIMARY KEY,
			balance    numeric(20,6) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS sim.profiles (
			user_id    text PRIMARY KEY,
			email      text NOT NULL DEFAULT '',
			first_name text NOT NULL DEFAULT '',
			last_name  text NOT NULL DEFAULT '',
			avatar_url text NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS sim.positions (
			user_id    text NOT NULL,
			symbol     text NOT NULL,
			quantity   bigint NOT NULL CHECK (quantity > 0),
			avg_price  numeric(20,6) NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, symbol)
		);

		CREATE TABLE IF NOT EXISTS sim.transactions (
			id         uuid PRIMARY KEY,
			user_id    text NOT NULL,
			symbol     text NOT NULL,
			side       text NOT NULL,
			quantity   bigint NOT NULL,
			price      numeric(20,6) NOT NULL,
			total      numeric(20,6) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS transactions_user_created
			ON sim.transactions (user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS sim.gamification (
			user_id              text PRIMARY KEY,
			xp                   bigint NOT NULL DEFAULT 0,
			level                bigint NOT NULL DEFAULT 1,
			daily_streak         bigint NOT NULL DEFAULT 0,
			longest_daily_streak bigint NOT NULL DEFAULT 0,
			trade_streak         bigint NOT NULL DEFAULT 0,
			longest_trade_streak bigint NOT NULL DEFAULT 0,
			last_active          timestamptz,
			last_trade_day       timestamptz
		);

		CREATE TABLE IF NOT EXISTS sim.badges (
			user_id    text NOT NULL,
			name       text NOT NULL,
			awarded_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, name)
		);

		CREATE TABLE IF NOT EXISTS sim.idempotency_keys (
			user_id    text NOT NULL,
			key        text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, key)
		);
	`)
	return err
}

func (p *Postgres) EnsureAccount(ctx context.Context, profile game.Profile, startingBalance decimal.Decimal) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO sim.accounts (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, profile.UserID, startingBalance); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO sim.profiles (user_id, email, first_name, last_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`, profile.UserID, profile.Email, profile.FirstName, profile.LastName, profile.AvatarURL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO sim.gamification (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, profile.UserID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Account(ctx context.Context, userID string) (game.Account, error) {
	var a game.Account
	err := p.pool.QueryRow(ctx, `
		SELECT user_id, balance, created_at, updated_at
		FROM sim.accounts
		WHERE user_id = $1
	`, userID).Scan(&a.UserID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, game.ErrAccountNotFound
	}
	return a, err
}

func (p *Postgres) Positions(ctx context.Context, userID string) ([]game.Position, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, symbol, quantity, avg_price, updated_at
		FROM sim.positions
		WHERE user_id = $1
		ORDER BY symbol
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

func (p *Postgres) Transactions(ctx context.Context, userID string, limit int) ([]game.Transaction, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, symbol, side, quantity, price, total, created_at
		FROM sim.transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Transaction
	for rows.Next() {
		var t game.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.Total, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) Profile(ctx context.Context, userID string) (game.Profile, error) {
	var pr game.Profile
	err := p.pool.QueryRow(ctx, `
		SELECT user_id, email, first_name, last_name, avatar_url
		FROM sim.profiles
		WHERE user_id = $1
	`, userID).Scan(&pr.UserID, &pr.Email, &pr.FirstName, &pr.LastName, &pr.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return pr, game.ErrAccountNotFound
	}
	return pr, err
}

func (p *Postgres) Gamification(ctx context.Context, userID string) (game.GamificationState, error) {
	g := game.GamificationState{Level: 1}
	var lastActive, lastTrade *time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT xp, level, daily_streak, longest_daily_streak,
		       trade_streak, longest_trade_streak, last_active, last_trade_day
		FROM sim.gamification
		WHERE user_id = $1
	`, userID).Scan(&g.XP, &g.Level, &g.DailyStreak, &g.LongestDailyStreak,
		&g.TradeStreak, &g.LongestTradeStreak, &lastActive, &lastTrade)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.GamificationState{Level: 1}, nil
	}
	if err != nil {
		return g, err
	}
	if lastActive != nil {
		g.LastActive = *lastActive
	}
	if lastTrade != nil {
		g.LastTradeDay = *lastTrade
	}

	rows, err := p.pool.Query(ctx, `
		SELECT user_id, name, awarded_at
		FROM sim.badges
		WHERE user_id = $1
		ORDER BY awarded_at
	`, userID)
	if err != nil {
		return g, err
	}
	defer rows.Close()
	for rows.Next() {
		var b game.Badge
		if err := rows.Scan(&b.UserID, &b.Name, &b.AwardedAt); err != nil {
			return g, err
		}
		g.Badges = append(g.Badges, b)
	}
	return g, rows.Err()
}

// ApplyTrade commits the full effect of one trade in a single
// serializable transaction, retried on conflict. The idempotency key
// is claimed first so a replayed order rolls the whole thing back.
func (p *Postgres) ApplyTrade(ctx context.Context, app game.TradeApplication) error {
	return p.withSerializableRetry(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, app.UserID, app.IdempotencyKey); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `
			UPDATE sim.accounts
			SET balance = $1, updated_at = now()
			WHERE user_id = $2
		`, app.NewBalance, app.UserID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return game.ErrAccountNotFound
		}

		if app.ClosePosition {
			if _, err := tx.Exec(ctx, `
				DELETE FROM sim.positions
				WHERE user_id = $1 AND symbol = $2
			`, app.UserID, app.Position.Symbol); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx, `
				INSERT INTO sim.positions (user_id, symbol, quantity, avg_price, updated_at)
				VALUES ($1, $2, $3, $4, now())
				ON CONFLICT (user_id, symbol) DO UPDATE
				SET quantity = EXCLUDED.quantity,
				    avg_price = EXCLUDED.avg_price,
				    updated_at = now()
			`, app.UserID, app.Position.Symbol, app.Position.Quantity, app.Position.AvgPrice); err != nil {
				return err
			}
		}

		t := app.Transaction
		if _, err := tx.Exec(ctx, `
			INSERT INTO sim.transactions (id, user_id, symbol, side, quantity, price, total, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, t.ID, t.UserID, t.Symbol, t.Side, t.Quantity, t.Price, t.Total, t.CreatedAt); err != nil {
			return err
		}

		if err := putGamificationTx(ctx, tx, app.UserID, app.Gamification); err != nil {
			return err
		}
		for _, b := range app.NewBadges {
			if _, err := tx.Exec(ctx, `
				INSERT INTO sim.badges (user_id, name, awarded_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, name) DO NOTHING
			`, b.UserID, b.Name, b.AwardedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, userID, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO sim.idempotency_keys (user_id, key)
		VALUES ($1, $2)
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return game.ErrDuplicateIdempotency
	}
	return nil
}

func (p *Postgres) ResetAccount(ctx context.Context, userID string, startingBalance decimal.Decimal) error {
	return p.withSerializableRetry(ctx, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
			UPDATE sim.accounts
			SET balance = $1, updated_at = now()
			WHERE user_id = $2
		`, startingBalance, userID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return game.ErrAccountNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sim.positions WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sim.transactions WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sim.badges WHERE user_id = $1`, userID); err != nil {
			return err
		}
		return putGamificationTx(ctx, tx, userID, game.GamificationState{Level: 1})
	})
}

func (p *Postgres) UpdateProfile(ctx context.Context, userID string, update game.ProfileUpdate) (game.Profile, error) {
	var pr game.Profile
	err := p.pool.QueryRow(ctx, `
		UPDATE sim.profiles
		SET first_name = COALESCE($1, first_name),
		    last_name  = COALESCE($2, last_name),
		    avatar_url = COALESCE($3, avatar_url)
		WHERE user_id = $4
		RETURNING user_id, email, first_name, last_name, avatar_url
	`, update.FirstName, update.LastName, update.AvatarURL, userID).
		Scan(&pr.UserID, &pr.Email, &pr.FirstName, &pr.LastName, &pr.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return pr, game.ErrAccountNotFound
	}
	return pr, err
}

func (p *Postgres) PutGamification(ctx context.Context, userID string, g game.GamificationState) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := putGamificationTx(ctx, tx, userID, g); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func putGamificationTx(ctx context.Context, tx pgx.Tx, userID string, g game.GamificationState) error {
	var lastActive, lastTrade *time.Time
	if !g.LastActive.IsZero() {
		lastActive = &g.LastActive
	}
	if !g.LastTradeDay.IsZero() {
		lastTrade = &g.LastTradeDay
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO sim.gamification
		    (user_id, xp, level, daily_streak, longest_daily_streak,
		     trade_streak, longest_trade_streak, last_active, last_trade_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE
		SET xp = EXCLUDED.xp,
		    level = EXCLUDED.level,
		    daily_streak = EXCLUDED.daily_streak,
		    longest_daily_streak = EXCLUDED.longest_daily_streak,
		    trade_streak = EXCLUDED.trade_streak,
		    longest_trade_streak = EXCLUDED.longest_trade_streak,
		    last_active = EXCLUDED.last_active,
		    last_trade_day = EXCLUDED.last_trade_day
	`, userID, g.XP, g.Level, g.DailyStreak, g.LongestDailyStreak,
		g.TradeStreak, g.LongestTradeStreak, lastActive, lastTrade)
	return err
}

func (p *Postgres) AllAccounts(ctx context.Context) ([]game.Account, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, balance, created_at, updated_at
		FROM sim.accounts
		ORDER BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Account
	for rows.Next() {
		var a game.Account
		if err := rows.Scan(&a.UserID, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) AllPositions(ctx context.Context) ([]game.Position, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, symbol, quantity, avg_price, updated_at
		FROM sim.positions
		ORDER BY user_id, symbol
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

func (p *Postgres) ProfilesByID(ctx context.Context, userIDs []string) (map[string]game.Profile, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, email, first_name, last_name, avatar_url
		FROM sim.profiles
		WHERE user_id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]game.Profile, len(userIDs))
	for rows.Next() {
		var pr game.Profile
		if err := rows.Scan(&pr.UserID, &pr.Email, &pr.FirstName, &pr.LastName, &pr.AvatarURL); err != nil {
			return nil, err
		}
		out[pr.UserID] = pr
	}
	return out, rows.Err()
}

func scanPositions(rows pgx.Rows) ([]game.Position, error) {
	var out []game.Position
	for rows.Next() {
		var pos game.Position
		if err := rows.Scan(&pos.UserID, &pos.Symbol, &pos.Quantity, &pos.AvgPrice, &pos.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

func (p *Postgres) withSerializableRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		p.log.Warn("serialization conflict, retrying", "attempt", attempt+1)
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return errors.New("transaction conflict: retries exhausted")
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
