// Package auth wraps the Supabase GoTrue endpoints the simulator uses
// for signup, login and bearer-token verification.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SupabaseClient talks to a Supabase project's auth API.
type SupabaseClient struct {
	http *resty.Client
}

// Session is the token bundle Supabase returns on signup and login.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func NewSupabaseClient(baseURL, anonKey string) *SupabaseClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("apikey", anonKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(20 * time.Second)
	return &SupabaseClient{http: client}
}

func (c *SupabaseClient) SignUp(ctx context.Context, email, password string) (Session, error) {
	var out Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/auth/v1/signup")
	if err != nil {
		return Session{}, fmt.Errorf("supabase signup: %w", err)
	}
	if resp.IsError() {
		return Session{}, fmt.Errorf("supabase signup status %d: %s", resp.StatusCode(), trimBody(resp))
	}
	return out, nil
}

func (c *SupabaseClient) Login(ctx context.Context, email, password string) (Session, error) {
	var out Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/auth/v1/token?grant_type=password")
	if err != nil {
		return Session{}, fmt.Errorf("supabase login: %w", err)
	}
	if resp.IsError() {
		return Session{}, fmt.Errorf("supabase login status %d: %s", resp.StatusCode(), trimBody(resp))
	}
	return out, nil
}

// VerifyAccessToken resolves a bearer token to its user.
func (c *SupabaseClient) VerifyAccessToken(ctx context.Context, accessToken string) (User, error) {
	var out User
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&out).
		Get("/auth/v1/user")
	if err != nil {
		return User{}, fmt.Errorf("verify token: %w", err)
	}
	if resp.IsError() {
		return User{}, fmt.Errorf("verify token status %d: %s", resp.StatusCode(), trimBody(resp))
	}
	return out, nil
}

func trimBody(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > 2048 {
		body = body[:2048]
	}
	return body
}
