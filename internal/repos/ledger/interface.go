// Package ledger holds the append-only log of balance-affecting events.
//
// Appending an entry is always best-effort from the caller's perspective:
// the balance mutation it records is authoritative and is never rolled back
// because the audit row failed to land.
package ledger

import (
	"context"
	"encoding/json"
)

type EntryType string

const (
	EntryTopup     EntryType = "topup"
	EntryBuy       EntryType = "buy"
	EntryBuyFailed EntryType = "buy_failed"
)

// Entry is one row of the transaction log. Amount is in vendor currency,
// Credits is the signed credit delta applied to the wallet.
type Entry struct {
	UserID  string
	Amount  float64
	Credits int64
	Type    EntryType
	Meta    json.RawMessage
}

type Entries interface {
	Append(ctx context.Context, e Entry) error
}
