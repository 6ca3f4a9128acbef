// Package purchases stores completed purchase records ("sims" rows) and
// serves as the idempotency index for client-retried buy requests.
package purchases

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNoPurchase = errors.New("purchase not found")

	// ErrDuplicatePurchase reports that another request already stored a
	// record for the same (user id, client request id) pair. The store
	// enforces this with a partial unique index, so the lost half of a
	// concurrent duplicate is observable instead of silent.
	ErrDuplicatePurchase = errors.New("duplicate purchase for client request id")
)

// Purchase is one stored activation purchase.
type Purchase struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"user_id"`
	ClientRequestID string          `json:"client_request_id,omitempty"`
	Provider        string          `json:"provider"`
	ProviderOrderID string          `json:"provider_order_id"`
	Phone           string          `json:"phone,omitempty"`
	Product         string          `json:"product"`
	Operator        string          `json:"operator"`
	Country         string          `json:"country"`
	Price           float64         `json:"price"`
	PriceCredits    int64           `json:"price_credits"`
	Meta            json.RawMessage `json:"meta,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Purchases interface {
	// FindByRequestID looks up the purchase a previous request with the
	// same client request id stored. Returns ErrNoPurchase when absent.
	FindByRequestID(ctx context.Context, userID, clientRequestID string) (*Purchase, error)

	// Insert stores a new purchase record and returns it with the
	// store-assigned id and timestamp. Returns ErrDuplicatePurchase when
	// the (user id, client request id) pair is already taken.
	Insert(ctx context.Context, p Purchase) (*Purchase, error)
}
