// Package cli is the terminal client side: a thin typed client for the
// HTTP API and the local session file.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stocksim/internal/auth"
	"stocksim/internal/game"
	"stocksim/internal/market"
	"stocksim/internal/mentor"
)

// APIError is a non-2xx response from the server. Network failures are
// returned as-is so callers can tell the two apart.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsAPIError reports whether the server answered at all. Queueing a
// write for later replay only makes sense when it did not.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password, firstName, lastName string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":      email,
		"password":   password,
		"first_name": firstName,
		"last_name":  lastName,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Portfolio(ctx context.Context, accessToken string) (game.PortfolioView, error) {
	var out game.PortfolioView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/portfolio", accessToken, nil, &out, "")
	return out, err
}

// MarketOverview mirrors the market endpoint payload.
type MarketOverview struct {
	Stocks  []market.Stock `json:"stocks"`
	Indices []market.Index `json:"indices"`
	Range   string         `json:"range"`
}

func (c *Client) Market(ctx context.Context, accessToken, timeRange string) (MarketOverview, error) {
	path := "/v1/market"
	if timeRange != "" {
		path += "?range=" + url.QueryEscape(timeRange)
	}
	var out MarketOverview
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Quote(ctx context.Context, accessToken, symbol string) (market.Quote, error) {
	var out market.Quote
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stocks/"+url.PathEscape(symbol), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) PlaceOrder(ctx context.Context, accessToken, symbol, side string, quantity int64, idem string) (game.TradeResult, error) {
	var out game.TradeResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/orders", accessToken, map[string]any{
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
	}, &out, idem)
	return out, err
}

func (c *Client) Transactions(ctx context.Context, accessToken string, limit int) ([]game.Transaction, error) {
	path := "/v1/transactions"
	if limit > 0 {
		path = fmt.Sprintf("/v1/transactions?limit=%d", limit)
	}
	var out struct {
		Transactions []game.Transaction `json:"transactions"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out.Transactions, err
}

func (c *Client) Gamification(ctx context.Context, accessToken string) (game.GamificationState, error) {
	var out game.GamificationState
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/gamification", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, accessToken string) ([]game.LeaderboardRow, error) {
	var out struct {
		Rows []game.LeaderboardRow `json:"rows"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard", accessToken, nil, &out, "")
	return out.Rows, err
}

func (c *Client) Profile(ctx context.Context, accessToken string) (game.Profile, error) {
	var out game.Profile
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/profile", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, accessToken string, update game.ProfileUpdate) (game.Profile, error) {
	var out game.Profile
	err := c.jsonRequest(ctx, http.MethodPatch, "/v1/profile", accessToken, update, &out, "")
	return out, err
}

func (c *Client) ResetAccount(ctx context.Context, accessToken string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/account/reset", accessToken, nil, nil, "")
}

func (c *Client) MentorChat(ctx context.Context, accessToken, message string) (mentor.Reply, error) {
	var out mentor.Reply
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/mentor/chat", accessToken, map[string]any{
		"message": message,
	}, &out, "")
	return out, err
}

// Do issues an arbitrary request; the sync command uses it to replay
// queued writes verbatim.
func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	var in any
	if body != nil {
		in = body
	}
	err := c.jsonRequest(ctx, method, path, accessToken, in, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// errorMessage pulls the message out of the server's {"error": "..."}
// envelope, falling back to the raw body.
func errorMessage(raw []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(raw))
}
