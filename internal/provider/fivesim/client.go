// Package fivesim is a thin client for the 5sim activation-number API.
//
// The vendor's response shapes vary by endpoint and by error condition, so
// the client never interprets bodies beyond attempting a JSON parse. Non-2xx
// statuses are not errors: callers get the vendor's status and body and
// decide for themselves whether a failure is retryable.
package fivesim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://5sim.net/v1"

// Caller is the part of the client the rest of the service depends on.
type Caller interface {
	Call(ctx context.Context, path string) (Result, error)
}

// Result is the normal form of a vendor response. OK reflects the HTTP
// status class only. Body is non-nil when the response parsed as JSON;
// otherwise RawText holds the body unchanged.
type Result struct {
	OK      bool
	Status  int
	Body    json.RawMessage
	RawText string
}

// Payload returns the body in a JSON-serializable form: the parsed JSON when
// available, the raw text otherwise.
func (r Result) Payload() any {
	if r.Body != nil {
		return r.Body
	}

	return r.RawText
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Call performs a GET against the vendor API. The returned error covers
// transport failures only; vendor-side failures surface as Result.OK=false.
func (c *Client) Call(ctx context.Context, path string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call vendor: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read vendor response: %w", err)
	}

	res := Result{
		OK:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
		RawText: string(text),
	}

	if len(text) > 0 && json.Valid(text) {
		res.Body = json.RawMessage(text)
	}

	return res, nil
}
