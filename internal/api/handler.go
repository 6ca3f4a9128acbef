package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/simvault/simvault/internal/auth"
	"github.com/simvault/simvault/internal/provider/fivesim"
	"github.com/simvault/simvault/internal/services/purchase"
)

// serviceRoleUser is the synthetic identity assigned when the caller
// authenticates with the service-role key itself (admin/testing mode).
const serviceRoleUser = "service_role_test"

// PurchaseService is the part of the orchestrator the dispatcher needs.
type PurchaseService interface {
	Buy(ctx context.Context, req purchase.BuyRequest) (*purchase.BuyResult, error)
	Topup(ctx context.Context, userID string, credits int64, amount float64) (int64, error)
}

// Handler dispatches the single-endpoint action protocol: "buy" runs the
// purchase orchestrator, everything else is an authorized pass-through to
// the vendor.
type Handler struct {
	svc            PurchaseService
	vendor         fivesim.Caller
	resolver       auth.TokenResolver
	serviceRoleKey string
}

func NewHandler(svc PurchaseService, vendor fivesim.Caller, resolver auth.TokenResolver, serviceRoleKey string) *Handler {
	return &Handler{
		svc:            svc,
		vendor:         vendor,
		resolver:       resolver,
		serviceRoleKey: serviceRoleKey,
	}
}

// actionRequest covers the union of all action payloads. Unknown fields are
// ignored on purpose: clients send estimate and UI state we don't care about.
type actionRequest struct {
	Action          string            `json:"action"`
	LegacyType      string            `json:"type"`
	Country         string            `json:"country"`
	Operator        string            `json:"operator"`
	Product         string            `json:"product"`
	ClientRequestID string            `json:"clientRequestId"`
	Options         map[string]any    `json:"options"`
	EstimateCredits *int64            `json:"estimateCredits"`
	ID              json.RawMessage   `json:"id"`
	OrderID         json.RawMessage   `json:"orderId"`
	Number          string            `json:"number"`
	Lang            string            `json:"lang"`
	UserID          string            `json:"userId"`
	Credits         int64             `json:"credits"`
	Amount          float64           `json:"amount"`
}

// action resolves the requested action: explicit, legacy "type" field, or
// the historical default "buy". Always lowercased.
func (a *actionRequest) action() string {
	for _, s := range []string{a.Action, a.LegacyType} {
		if s != "" {
			return strings.ToLower(strings.TrimSpace(s))
		}
	}

	return "buy"
}

// needsAuth lists actions that require a resolved user identity.
var needsAuth = map[string]bool{
	"buy": true, "check": true, "finish": true, "cancel": true,
	"ban": true, "reuse": true, "inbox": true, "topup": true,
}

// Dispatch handles POST / — the single endpoint of the purchase core.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var action string

	defer func() {
		rec := recover()
		if rec != nil {
			slog.Error("unhandled panic in dispatch",
				"request_id", requestID(r.Context()), "action", action, "panic", rec)
			writeJSON(w, http.StatusInternalServerError,
				map[string]any{"error": "internal_error", "details": fmt.Sprint(rec)})
		}
	}()

	var req actionRequest
	// A malformed body is treated as empty, matching the historical
	// behavior; per-action field validation produces the real 400s.
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req)

	action = req.action()

	timer := prometheus.NewTimer(actionDuration.WithLabelValues(action))
	defer timer.ObserveDuration()

	userID, ok := h.authorize(w, r, action)
	if !ok {
		return
	}

	switch action {
	case "buy":
		h.handleBuy(w, r, userID, &req)
	case "check":
		h.passThrough(w, r, action, vendorIDPath("check", firstRaw(req.ID, req.OrderID)))
	case "finish":
		h.passThrough(w, r, action, vendorIDPath("finish", req.ID))
	case "cancel":
		h.passThrough(w, r, action, vendorIDPath("cancel", req.ID))
	case "ban":
		h.passThrough(w, r, action, vendorIDPath("ban", req.ID))
	case "reuse":
		h.handleReuse(w, r, &req)
	case "inbox":
		h.passThrough(w, r, action, vendorInboxPath(req.ID))
	case "notifications":
		lang := req.Lang
		if lang == "" {
			lang = "en"
		}
		h.passThrough(w, r, action, "/guest/flash/"+url.PathEscape(lang))
	case "topup":
		h.handleTopup(w, r, userID, &req)
	default:
		h.respond(w, action, http.StatusBadRequest, map[string]string{"error": "Unknown action"})
	}
}

// authorize resolves the bearer token for actions that need one. It reports
// false after writing the failure response.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action string) (string, bool) {
	if !needsAuth[action] {
		return "", true
	}

	token := bearerToken(r)

	if h.serviceRoleKey != "" && token == h.serviceRoleKey {
		slog.Warn("service role token used, admin/testing mode",
			"request_id", requestID(r.Context()), "action", action)
		return serviceRoleUser, true
	}

	userID, err := h.resolver.ResolveToken(r.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			slog.Warn("identity provider lookup failed",
				"request_id", requestID(r.Context()), "error", err)
		}

		h.respond(w, action, http.StatusUnauthorized,
			map[string]any{"code": 401, "message": "Invalid or expired token"})

		return "", false
	}

	return userID, true
}

func (h *Handler) handleBuy(w http.ResponseWriter, r *http.Request, userID string, req *actionRequest) {
	country := strings.TrimSpace(req.Country)
	product := strings.TrimSpace(req.Product)
	if country == "" || product == "" {
		h.respond(w, "buy", http.StatusBadRequest, map[string]string{"error": "Missing country or product"})
		return
	}

	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		operator = "any"
	}

	if req.EstimateCredits != nil {
		// Advisory only; the charge is always recomputed from the vendor
		// quote server-side.
		slog.Debug("client credit estimate received",
			"request_id", requestID(r.Context()), "estimate", *req.EstimateCredits)
	}

	result, err := h.svc.Buy(r.Context(), purchase.BuyRequest{
		UserID:          userID,
		Country:         country,
		Operator:        operator,
		Product:         product,
		ClientRequestID: strings.TrimSpace(req.ClientRequestID),
		Options:         stringOptions(req.Options),
	})
	if err != nil {
		var verr *purchase.VendorError
		if errors.As(err, &verr) {
			h.respond(w, "buy", http.StatusConflict,
				map[string]any{"success": false, "providerError": verr.Body})
			return
		}

		var cerr *purchase.ChargeError
		if errors.As(err, &cerr) {
			h.respond(w, "buy", http.StatusPaymentRequired, map[string]any{
				"success": false,
				"error":   "insufficient_balance_or_rpc_failed",
				"details": cerr.Detail,
			})
			return
		}

		slog.Error("buy failed", "request_id", requestID(r.Context()), "error", err)
		h.respond(w, "buy", http.StatusInternalServerError,
			map[string]any{"error": "internal_error", "details": err.Error()})

		return
	}

	resp := map[string]any{"success": true, "order": result.Order}
	if result.NewBalance != nil {
		resp["newBalance"] = *result.NewBalance
	}

	h.respond(w, "buy", http.StatusOK, resp)
}

func (h *Handler) handleReuse(w http.ResponseWriter, r *http.Request, req *actionRequest) {
	if req.Product == "" || req.Number == "" {
		h.respond(w, "reuse", http.StatusBadRequest, map[string]string{"error": "Missing product/number"})
		return
	}

	h.passThrough(w, r, "reuse",
		"/user/reuse/"+url.PathEscape(req.Product)+"/"+url.PathEscape(req.Number))
}

func (h *Handler) handleTopup(w http.ResponseWriter, r *http.Request, userID string, req *actionRequest) {
	if userID != serviceRoleUser {
		h.respond(w, "topup", http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	if req.UserID == "" || req.Credits <= 0 {
		h.respond(w, "topup", http.StatusBadRequest, map[string]string{"error": "Missing userId or credits"})
		return
	}

	balance, err := h.svc.Topup(r.Context(), req.UserID, req.Credits, req.Amount)
	if err != nil {
		slog.Error("topup failed", "request_id", requestID(r.Context()), "error", err)
		h.respond(w, "topup", http.StatusInternalServerError,
			map[string]any{"error": "internal_error", "details": err.Error()})

		return
	}

	h.respond(w, "topup", http.StatusOK, map[string]any{"success": true, "newBalance": balance})
}

// passThrough calls the vendor and forwards its status code and body
// unchanged. An empty path means a required id field was missing.
func (h *Handler) passThrough(w http.ResponseWriter, r *http.Request, action, path string) {
	if path == "" {
		h.respond(w, action, http.StatusBadRequest, missingFieldError(action))
		return
	}

	res, err := h.vendor.Call(r.Context(), path)
	if err != nil {
		slog.Error("vendor call failed", "request_id", requestID(r.Context()),
			"action", action, "error", err)
		h.respond(w, action, http.StatusInternalServerError,
			map[string]any{"error": "internal_error", "details": err.Error()})

		return
	}

	h.respond(w, action, res.Status, res.Payload())
}

// --- helpers ---

func (h *Handler) respond(w http.ResponseWriter, action string, status int, payload any) {
	actionTotal.WithLabelValues(action, strconv.Itoa(status)).Inc()
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// rawToString renders a JSON scalar (string or number) as its plain string
// form, since clients send vendor ids both ways.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}

func firstRaw(raws ...json.RawMessage) json.RawMessage {
	for _, r := range raws {
		if rawToString(r) != "" {
			return r
		}
	}

	return nil
}

func vendorIDPath(verb string, id json.RawMessage) string {
	s := rawToString(id)
	if s == "" {
		return ""
	}

	return "/user/" + verb + "/" + url.PathEscape(s)
}

func vendorInboxPath(id json.RawMessage) string {
	s := rawToString(id)
	if s == "" {
		return ""
	}

	return "/user/sms/inbox/" + url.PathEscape(s)
}

func missingFieldError(action string) map[string]string {
	if action == "notifications" {
		return map[string]string{"error": "Missing lang"}
	}

	return map[string]string{"error": "Missing id"}
}

// stringOptions flattens the free-form options map to strings, dropping
// empty values the way the vendor query expects.
func stringOptions(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}

	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if val != "" {
				out[k] = val
			}
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			out[k] = fmt.Sprint(val)
		}
	}

	return out
}
