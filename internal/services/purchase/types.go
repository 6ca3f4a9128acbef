package purchase

import (
	"encoding/json"
	"fmt"
)

// BuyRequest describes one intended activation purchase.
type BuyRequest struct {
	UserID          string
	Country         string
	Operator        string
	Product         string
	ClientRequestID string
	Options         map[string]string
}

// BuyResult is the successful outcome of Buy. Order is the vendor order body
// (or the stored purchase record on an idempotent hit). NewBalance is nil on
// idempotent hits, where no charge happened in this invocation.
type BuyResult struct {
	Order      json.RawMessage
	NewBalance *int64
	Idempotent bool
}

// VendorError reports that the vendor reservation call failed before any
// ledger mutation. Body carries the vendor's response for the client.
type VendorError struct {
	Status int
	Body   any
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor reservation failed: status %d", e.Status)
}

// ChargeError reports that the ledger debit failed after the vendor
// reservation succeeded. Compensation has already been attempted by the time
// it is returned.
type ChargeError struct {
	Detail string
	err    error
}

func (e *ChargeError) Error() string {
	return "charge failed: " + e.Detail
}

func (e *ChargeError) Unwrap() error { return e.err }
