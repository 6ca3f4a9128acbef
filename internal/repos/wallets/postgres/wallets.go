package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simvault/simvault/internal/repos/wallets"
)

var _ wallets.Wallets = (*walletsRepo)(nil)

type walletsRepo struct{ db *sql.DB }

func New(db *sql.DB) *walletsRepo {
	return &walletsRepo{db: db}
}

func (r *walletsRepo) Increment(ctx context.Context, userID string, delta int64) (int64, error) {
	var balance int64

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance,
		              updated_at = now()
		RETURNING balance
	`, userID, delta).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("increment balance: %w", err)
	}

	return balance, nil
}

func (r *walletsRepo) Decrement(ctx context.Context, userID string, delta int64) (int64, error) {
	var balance int64

	err := r.db.QueryRowContext(ctx, `
		UPDATE wallets
		SET balance = balance - $2,
		    updated_at = now()
		WHERE user_id = $1
		  AND balance >= $2
		RETURNING balance
	`, userID, delta).Scan(&balance)
	if err != nil {
		// No row matched: wallet missing or balance below delta. Either
		// way the debit must not happen.
		if errors.Is(err, sql.ErrNoRows) {
			return 0, wallets.ErrInsufficientFunds
		}

		return 0, fmt.Errorf("decrement balance: %w", err)
	}

	return balance, nil
}

func (r *walletsRepo) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64

	err := r.db.QueryRowContext(ctx, `
		SELECT balance
		FROM wallets
		WHERE user_id = $1
	`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}
