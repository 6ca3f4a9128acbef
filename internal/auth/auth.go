// Package auth resolves bearer access tokens to user ids through the
// identity provider's REST endpoint.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenResolver turns a client bearer token into a stable user id.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

// Client talks to a GoTrue-compatible auth endpoint (GET /auth/v1/user)
// using the service-role key as the API key.
type Client struct {
	baseURL        string
	serviceRoleKey string
	http           *http.Client
}

func NewClient(baseURL, serviceRoleKey string) *Client {
	return &Client{
		baseURL:        baseURL,
		serviceRoleKey: serviceRoleKey,
		http:           &http.Client{Timeout: 10 * time.Second},
	}
}

// ResolveToken validates the user's access token with the identity provider
// and returns the user id. Any non-200 answer maps to ErrInvalidToken; only
// transport failures surface as other errors.
func (c *Client) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.serviceRoleKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call identity provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read identity response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", ErrInvalidToken
	}

	var user struct {
		ID string `json:"id"`
	}

	err = json.Unmarshal(body, &user)
	if err != nil || user.ID == "" {
		return "", ErrInvalidToken
	}

	return user.ID, nil
}
