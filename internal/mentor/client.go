// Package mentor is a thin client for the external AI mentor chat
// service. The game core never depends on it; the API degrades to a
// 503 when no mentor URL is configured.
package mentor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var (
	// ErrNotConfigured means no mentor URL was set.
	ErrNotConfigured = errors.New("mentor service not configured")
	// ErrRateLimited means the caller outran the per-process limiter.
	ErrRateLimited = errors.New("mentor rate limit exceeded")
)

// Client posts chat messages to the configured inference endpoint. A
// process-wide limiter keeps a chatty user from hammering the upstream.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// Reply is the mentor's answer to one message.
type Reply struct {
	Message string `json:"message"`
}

// New builds a mentor client. baseURL may be empty, in which case every
// Chat call returns ErrNotConfigured.
func New(baseURL string, perMinute float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if perMinute <= 0 {
		perMinute = 6
	}
	var client *resty.Client
	if baseURL != "" {
		client = resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second)
	}
	return &Client{
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), 3),
		log:     logger,
	}
}

// Chat sends one user message and returns the mentor's reply.
func (c *Client) Chat(ctx context.Context, userID, message string) (Reply, error) {
	if c.http == nil {
		return Reply{}, ErrNotConfigured
	}
	if !c.limiter.Allow() {
		return Reply{}, ErrRateLimited
	}

	var out Reply
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"user": userID, "message": message}).
		SetResult(&out).
		Post("/v1/chat")
	if err != nil {
		return Reply{}, fmt.Errorf("mentor request: %w", err)
	}
	if resp.IsError() {
		c.log.Warn("mentor upstream error", "status", resp.StatusCode())
		return Reply{}, fmt.Errorf("mentor status %d", resp.StatusCode())
	}
	return out, nil
}
