package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/simvault/simvault/internal/repos/ledger"
)

var _ ledger.Entries = (*entriesRepo)(nil)

type entriesRepo struct{ db *sql.DB }

func New(db *sql.DB) *entriesRepo {
	return &entriesRepo{db: db}
}

func (r *entriesRepo) Append(ctx context.Context, e ledger.Entry) error {
	var meta any
	if len(e.Meta) > 0 {
		meta = []byte(e.Meta)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (user_id, amount, credits, entry_type, meta)
		VALUES ($1, $2, $3, $4, $5)
	`, e.UserID, e.Amount, e.Credits, string(e.Type), meta)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	return nil
}
