// Package wallets defines the per-user credit balance store.
//
// Both primitives are atomic at the database level: the balance is never
// read-modified-written by callers, so concurrent requests race only on the
// single conditional UPDATE and the balance can never go negative.
package wallets

import (
	"context"
	"errors"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type Wallets interface {
	// Increment adds delta credits to the user's balance, creating the
	// wallet at zero first if absent, and returns the new balance.
	Increment(ctx context.Context, userID string, delta int64) (int64, error)

	// Decrement removes delta credits and returns the new balance. If the
	// balance is smaller than delta it returns ErrInsufficientFunds and
	// leaves the balance unchanged. A missing wallet counts as balance 0.
	Decrement(ctx context.Context, userID string, delta int64) (int64, error)

	// GetBalance returns the current balance; a missing wallet reads as 0.
	GetBalance(ctx context.Context, userID string) (int64, error)
}
