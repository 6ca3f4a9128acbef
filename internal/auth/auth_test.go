package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ResolveToken_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		token   string
		wantID  string
		wantErr error
	}{
		{
			name:   "valid_token",
			status: http.StatusOK,
			body:   `{"id":"user-123","email":"a@b.c"}`,
			token:  "good-token",
			wantID: "user-123",
		},
		{
			name:    "expired_token",
			status:  http.StatusUnauthorized,
			body:    `{"code":401,"msg":"JWT expired"}`,
			token:   "stale-token",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "empty_token_short_circuits",
			token:   "",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "ok_without_user_id",
			status:  http.StatusOK,
			body:    `{}`,
			token:   "odd-token",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotAuth, gotAPIKey string

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotAPIKey = r.Header.Get("apikey")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "service-key")

			id, err := c.ResolveToken(context.Background(), tt.token)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("user id: want %q, got %q", tt.wantID, id)
			}
			if gotAuth != "Bearer "+tt.token {
				t.Errorf("auth header: got %q", gotAuth)
			}
			if gotAPIKey != "service-key" {
				t.Errorf("apikey header: got %q", gotAPIKey)
			}
		})
	}
}
