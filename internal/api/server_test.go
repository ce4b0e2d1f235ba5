package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksim/internal/auth"
	"stocksim/internal/config"
	"stocksim/internal/game"
	"stocksim/internal/market"
	"stocksim/internal/mentor"
	"stocksim/internal/store"
)

// stubAuth accepts a single token and returns a fixed user.
type stubAuth struct {
	token string
	user  auth.User
}

func (a stubAuth) SignUp(context.Context, string, string) (auth.Session, error) {
	return auth.Session{AccessToken: a.token, User: a.user}, nil
}

func (a stubAuth) Login(context.Context, string, string) (auth.Session, error) {
	return auth.Session{AccessToken: a.token, User: a.user}, nil
}

func (a stubAuth) VerifyAccessToken(_ context.Context, token string) (auth.User, error) {
	if token != a.token {
		return auth.User{}, errors.New("unknown token")
	}
	return a.user, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sim := market.NewSeeded(nil, 7)
	mem := store.NewMemory()
	svc := game.NewService(mem, sim, nil)
	require.NoError(t, svc.EnsureAccount(context.Background(), game.Profile{
		UserID: "u1", Email: "u1@example.com", FirstName: "Asha",
	}))
	return New(config.API{}, nil, stubAuth{token: "tok", user: auth.User{ID: "u1", Email: "u1@example.com"}},
		svc, sim, mentor.New("", 0, nil))
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/portfolio", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/portfolio", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuoteNeverNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/stocks/NOSUCHSYM", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var q market.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "NOSUCHSYM", q.Symbol)
	assert.Greater(t, q.Price, 0.0)
}

func TestQuoteRejectsMalformedSymbol(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/stocks/bad-sym!", "tok", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderFlow(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/orders", "tok", map[string]any{
		"symbol": "RELI", "side": "buy", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res game.TradeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(10), res.XP)
	require.NotNil(t, res.Position)
	assert.Equal(t, int64(2), res.Position.Quantity)

	rec = do(t, s, http.MethodGet, "/v1/portfolio", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view game.PortfolioView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Positions, 1)
}

func TestOrderReplayedIdempotencyKeyConflicts(t *testing.T) {
	s := newTestServer(t)
	order := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{
			"symbol": "RELI", "side": "buy", "quantity": 1,
		}))
		req := httptest.NewRequest(http.MethodPost, "/v1/orders", &buf)
		req.Header.Set("Authorization", "Bearer tok")
		req.Header.Set("Idempotency-Key", "order-1")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := order()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = order()
	assert.Equal(t, http.StatusConflict, rec.Code, "a synced replay must not double-execute")
}

func TestOrderInsufficientFunds(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/orders", "tok", map[string]any{
		"symbol": "RELI", "side": "buy", "quantity": 100_000_000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderRejectsBadSide(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/orders", "tok", map[string]any{
		"symbol": "RELI", "side": "short", "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketOverview(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/market?range=1d", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Stocks  []market.Stock `json:"stocks"`
		Indices []market.Index `json:"indices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Stocks, 200)
	require.Len(t, out.Indices, 2)
	assert.Len(t, out.Indices[0].History, 24)
}

func TestLeaderboardEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/leaderboard", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Rows []game.LeaderboardRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Rows, 1)
	assert.Equal(t, 1, out.Rows[0].Rank)
}

func TestAccountReset(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/orders", "tok", map[string]any{
		"symbol": "RELI", "side": "buy", "quantity": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/account/reset", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/transactions", "tok", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Transactions []game.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Empty(t, out.Transactions)
}

func TestMentorUnconfigured(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/mentor/chat", "tok", map[string]any{"message": "help"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProfileUpdate(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPatch, "/v1/profile", "tok", map[string]any{"last_name": "Rao"})
	require.Equal(t, http.StatusOK, rec.Code)

	var p game.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Asha", p.FirstName)
	assert.Equal(t, "Rao", p.LastName)
}
