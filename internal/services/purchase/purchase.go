// Package purchase sequences the activation purchase as a compensating
// transaction: reserve the vendor number first, charge the wallet second,
// cancel the reservation if the charge fails.
//
// The vendor side has no commit/rollback protocol, so the two authoritative
// effects (vendor reservation, balance debit) can only be stitched together
// best-effort. The ordering is deliberate: the vendor's number pool is the
// more perishable resource, and the wallet debit is the step we can verify
// atomically.
package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"

	"github.com/simvault/simvault/internal/provider/fivesim"
	"github.com/simvault/simvault/internal/repos/ledger"
	"github.com/simvault/simvault/internal/repos/purchases"
	"github.com/simvault/simvault/internal/repos/wallets"
)

const providerName = "5sim"

type Service struct {
	vendor    fivesim.Caller
	wallets   wallets.Wallets
	entries   ledger.Entries
	purchases purchases.Purchases
	rate      float64
}

// New builds the orchestrator. rate is the fixed credits-per-currency-unit
// conversion factor, read once at startup.
func New(vendor fivesim.Caller, w wallets.Wallets, e ledger.Entries, p purchases.Purchases, rate float64) *Service {
	return &Service{
		vendor:    vendor,
		wallets:   w,
		entries:   e,
		purchases: p,
		rate:      rate,
	}
}

// priceToCredits converts a vendor-quoted price into credits: ceil(price *
// rate), floored at zero. Pure; a client-supplied estimate never feeds into
// this.
func priceToCredits(price, rate float64) int64 {
	n := math.Ceil(price * rate)
	if n <= 0 || math.IsNaN(n) {
		return 0
	}

	return int64(n)
}

// Buy runs the purchase protocol for one request.
func (s *Service) Buy(ctx context.Context, req BuyRequest) (*BuyResult, error) {
	// Idempotency pre-check: a retried request with a known id is answered
	// from the store without touching the vendor or the ledger.
	if req.ClientRequestID != "" {
		existing, err := s.purchases.FindByRequestID(ctx, req.UserID, req.ClientRequestID)
		if err != nil && !errors.Is(err, purchases.ErrNoPurchase) {
			slog.Warn("idempotency lookup failed, proceeding with purchase",
				"user_id", req.UserID, "client_request_id", req.ClientRequestID, "error", err)
		}

		if existing != nil {
			stored, merr := json.Marshal(existing)
			if merr != nil {
				return nil, fmt.Errorf("encode stored purchase: %w", merr)
			}

			return &BuyResult{Order: stored, Idempotent: true}, nil
		}
	}

	// Reserve the vendor number. No ledger mutation has happened yet, so a
	// failure here terminates the protocol with the vendor's answer.
	res, err := s.vendor.Call(ctx, buyPath(req))
	if err != nil {
		return nil, fmt.Errorf("vendor reservation: %w", err)
	}

	if !res.OK || res.Body == nil {
		return nil, &VendorError{Status: res.Status, Body: res.Payload()}
	}

	order, err := fivesim.ParseOrder(res.Body)
	if err != nil {
		return nil, &VendorError{Status: res.Status, Body: res.Payload()}
	}

	price := order.QuotedPrice()
	credits := priceToCredits(price, s.rate)

	newBalance, err := s.charge(ctx, req.UserID, credits)
	if err != nil {
		s.compensate(ctx, req, order, price, err)

		return nil, &ChargeError{Detail: err.Error(), err: err}
	}

	s.record(ctx, req, order, res.Body, price, credits)

	return &BuyResult{Order: res.Body, NewBalance: &newBalance}, nil
}

// charge debits the computed credits. A zero-cost order skips the debit and
// just reads the balance, so free vendor promotions don't fail on a wallet
// that does not exist yet.
func (s *Service) charge(ctx context.Context, userID string, credits int64) (int64, error) {
	if credits == 0 {
		balance, err := s.wallets.GetBalance(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("read balance: %w", err)
		}

		return balance, nil
	}

	balance, err := s.wallets.Decrement(ctx, userID, credits)
	if err != nil {
		return 0, fmt.Errorf("decrement %d credits: %w", credits, err)
	}

	return balance, nil
}

// compensate cancels the vendor reservation after a failed charge and logs a
// buy_failed audit row. Every step is best-effort: the reservation may stay
// orphaned at the vendor if the cancel itself fails.
func (s *Service) compensate(ctx context.Context, req BuyRequest, order fivesim.Order, price float64, chargeErr error) {
	slog.Error("charge failed after vendor reservation, compensating",
		"user_id", req.UserID, "provider_order_id", order.OrderRef(), "error", chargeErr)

	cancel, err := s.vendor.Call(ctx, "/user/cancel/"+url.PathEscape(order.OrderRef()))
	if err != nil {
		slog.Warn("vendor cancel call failed", "provider_order_id", order.OrderRef(), "error", err)
	} else if !cancel.OK {
		slog.Warn("vendor refused cancel", "provider_order_id", order.OrderRef(), "status", cancel.Status)
	}

	meta, _ := json.Marshal(map[string]any{
		"provider":       providerName,
		"provider_order": json.RawMessage(mustRaw(order)),
		"charge_error":   chargeErr.Error(),
	})

	err = s.entries.Append(ctx, ledger.Entry{
		UserID:  req.UserID,
		Amount:  price,
		Credits: 0,
		Type:    ledger.EntryBuyFailed,
		Meta:    meta,
	})
	if err != nil {
		slog.Warn("buy_failed ledger entry not recorded", "user_id", req.UserID, "error", err)
	}
}

// record persists the purchase row and the buy ledger entry. Both are
// best-effort: the vendor number is already consumed and the wallet already
// debited, so a persistence failure is logged, never unwound.
func (s *Service) record(ctx context.Context, req BuyRequest, order fivesim.Order, orderBody json.RawMessage, price float64, credits int64) {
	_, err := s.purchases.Insert(ctx, purchases.Purchase{
		UserID:          req.UserID,
		ClientRequestID: req.ClientRequestID,
		Provider:        providerName,
		ProviderOrderID: order.OrderRef(),
		Phone:           order.PhoneNumber(),
		Product:         req.Product,
		Operator:        req.Operator,
		Country:         req.Country,
		Price:           price,
		PriceCredits:    credits,
		Meta:            orderBody,
		Status:          orderStatus(order),
	})
	if err != nil {
		if errors.Is(err, purchases.ErrDuplicatePurchase) {
			// A concurrent request with the same client request id won the
			// insert race. Both reservations were paid for; the unique
			// index makes the collision visible here instead of hiding it.
			slog.Warn("duplicate client request id detected after charge",
				"user_id", req.UserID, "client_request_id", req.ClientRequestID)
		} else {
			slog.Warn("purchase record not persisted", "user_id", req.UserID,
				"provider_order_id", order.OrderRef(), "error", err)
		}
	}

	meta, _ := json.Marshal(map[string]any{
		"provider":       providerName,
		"provider_order": orderBody,
	})

	err = s.entries.Append(ctx, ledger.Entry{
		UserID:  req.UserID,
		Amount:  price,
		Credits: -credits,
		Type:    ledger.EntryBuy,
		Meta:    meta,
	})
	if err != nil {
		slog.Warn("buy ledger entry not recorded", "user_id", req.UserID, "error", err)
	}
}

// Topup adds credits to a wallet, creating it if needed, and appends a topup
// ledger entry. amount is the money value behind the credits, for the audit
// trail only.
func (s *Service) Topup(ctx context.Context, userID string, credits int64, amount float64) (int64, error) {
	if credits <= 0 {
		return 0, fmt.Errorf("topup credits must be positive, got %d", credits)
	}

	balance, err := s.wallets.Increment(ctx, userID, credits)
	if err != nil {
		return 0, fmt.Errorf("increment %d credits: %w", credits, err)
	}

	err = s.entries.Append(ctx, ledger.Entry{
		UserID:  userID,
		Amount:  amount,
		Credits: credits,
		Type:    ledger.EntryTopup,
	})
	if err != nil {
		slog.Warn("topup ledger entry not recorded", "user_id", userID, "error", err)
	}

	return balance, nil
}

// buyPath builds the vendor reservation path. Options become query
// parameters; the client request id rides along as the vendor-side ref.
func buyPath(req BuyRequest) string {
	path := "/user/buy/activation/" +
		url.PathEscape(req.Country) + "/" +
		url.PathEscape(req.Operator) + "/" +
		url.PathEscape(req.Product)

	q := url.Values{}
	for k, v := range req.Options {
		if v != "" {
			q.Set(k, v)
		}
	}

	if req.ClientRequestID != "" {
		q.Set("ref", req.ClientRequestID)
	}

	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	return path
}

func orderStatus(o fivesim.Order) string {
	if o.Status != "" {
		return o.Status
	}

	return "RECEIVED"
}

func mustRaw(order fivesim.Order) []byte {
	b, err := json.Marshal(order)
	if err != nil {
		return []byte("{}")
	}

	return b
}
