package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/simvault/simvault/internal/infra/pgtestutil"
	"github.com/simvault/simvault/internal/repos/ledger"
)

func TestEntries_Append(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	entries := []ledger.Entry{
		{UserID: "u1", Amount: 9.99, Credits: 100, Type: ledger.EntryTopup},
		{UserID: "u1", Amount: 5, Credits: -50, Type: ledger.EntryBuy, Meta: json.RawMessage(`{"provider":"5sim"}`)},
		{UserID: "u1", Amount: 5, Credits: 0, Type: ledger.EntryBuyFailed, Meta: json.RawMessage(`{"charge_error":"insufficient funds"}`)},
	}

	for _, e := range entries {
		err := repo.Append(context.Background(), e)
		if err != nil {
			t.Fatalf("append %s: %v", e.Type, err)
		}
	}

	var count int
	err := db.QueryRow(`SELECT count(*) FROM ledger_entries WHERE user_id = 'u1'`).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(entries) {
		t.Fatalf("rows: want %d, got %d", len(entries), count)
	}

	var credits int64
	err = db.QueryRow(`SELECT credits FROM ledger_entries WHERE entry_type = 'buy'`).Scan(&credits)
	if err != nil {
		t.Fatalf("select buy entry: %v", err)
	}
	if credits != -50 {
		t.Fatalf("buy credits: want -50, got %d", credits)
	}
}

func TestEntries_RejectsUnknownType(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	err := repo.Append(context.Background(), ledger.Entry{UserID: "u1", Type: "refund"})
	if err == nil {
		t.Fatal("entry types outside the check constraint must be rejected")
	}
}
