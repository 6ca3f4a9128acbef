package purchases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/simvault/simvault/internal/repos/purchases"
)

var _ purchases.Purchases = (*purchasesRepo)(nil)

type purchasesRepo struct{ db *sql.DB }

func New(db *sql.DB) *purchasesRepo {
	return &purchasesRepo{db: db}
}

const purchaseColumns = `
	id, user_id, COALESCE(client_request_id, ''), provider, provider_order_id,
	COALESCE(phone, ''), product, operator, country, price, price_credits,
	meta, COALESCE(status, ''), created_at
`

func (r *purchasesRepo) FindByRequestID(ctx context.Context, userID, clientRequestID string) (*purchases.Purchase, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM sims
		WHERE user_id = $1
		  AND client_request_id = $2
		LIMIT 1
	`, userID, clientRequestID)

	p, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, purchases.ErrNoPurchase
		}

		return nil, fmt.Errorf("find purchase by request id: %w", err)
	}

	return p, nil
}

func (r *purchasesRepo) Insert(ctx context.Context, p purchases.Purchase) (*purchases.Purchase, error) {
	var clientRequestID any
	if p.ClientRequestID != "" {
		clientRequestID = p.ClientRequestID
	}

	var meta any
	if len(p.Meta) > 0 {
		meta = []byte(p.Meta)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sims (
			user_id, client_request_id, provider, provider_order_id,
			phone, product, operator, country, price, price_credits,
			meta, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+purchaseColumns,
		p.UserID, clientRequestID, p.Provider, p.ProviderOrderID,
		p.Phone, p.Product, p.Operator, p.Country, p.Price, p.PriceCredits,
		meta, p.Status,
	)

	stored, err := scanPurchase(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, purchases.ErrDuplicatePurchase
		}

		return nil, fmt.Errorf("insert purchase: %w", err)
	}

	return stored, nil
}

func scanPurchase(row *sql.Row) (*purchases.Purchase, error) {
	var (
		p    purchases.Purchase
		meta []byte
	)

	err := row.Scan(
		&p.ID, &p.UserID, &p.ClientRequestID, &p.Provider, &p.ProviderOrderID,
		&p.Phone, &p.Product, &p.Operator, &p.Country, &p.Price, &p.PriceCredits,
		&meta, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(meta) > 0 {
		p.Meta = meta
	}

	return &p, nil
}
