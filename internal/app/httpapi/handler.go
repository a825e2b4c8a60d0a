// Package httpapi exposes the bridge layer's REST surface: swap execution,
// bridge governance, gateway operations, usage views and the event stream.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	app "github.com/OmniStable-Network/bridge_layer/internal/app"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/gateway"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/ledger"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/swap"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/token"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
	"github.com/OmniStable-Network/bridge_layer/internal/middleware"
)

// handler bundles the HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// NewHandler returns a router exposing the REST API.
func NewHandler(application *app.Application) http.Handler {
	h, _ := NewHandlerWithAudit(application, "")
	return h
}

// NewHandlerWithAudit additionally journals every mutating request to the
// given JSONL file. An empty path keeps the in-memory ring only.
func NewHandlerWithAudit(application *app.Application, auditPath string) (http.Handler, error) {
	sink, err := newFileAuditSink(auditPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	h := &handler{app: application, audit: newAuditLog(200, sink)}

	r := chi.NewRouter()
	r.Use(h.recordMutations)

	r.Get("/healthz", h.health)
	r.Get("/system/status", h.systemStatus)
	r.Get("/system/audit", h.httpAudit)

	r.Route("/bridges", func(r chi.Router) {
		r.Get("/", h.listBridges)
		r.Post("/", h.registerBridge)
		r.Route("/{token}", func(r chi.Router) {
			r.Get("/", h.getBridge)
			r.Patch("/", h.updateBridge)
			r.Delete("/", h.deregisterBridge)
			r.Get("/usage", h.bridgeUsage)
		})
	})

	r.Route("/swaps", func(r chi.Router) {
		r.Post("/in", h.swapIn)
		r.Post("/out", h.swapOut)
		r.Get("/receipts", h.swapReceipts)
	})

	r.Get("/usage/total", h.totalUsage)

	r.Route("/chain-limit", func(r chi.Router) {
		r.Get("/", h.getChainLimit)
		r.Put("/", h.setChainLimit)
	})

	r.Route("/exemptions", func(r chi.Router) {
		r.Get("/", h.listExemptions)
		r.Post("/", h.toggleExemption)
	})

	r.Route("/minters", func(r chi.Router) {
		r.Get("/", h.listMinters)
		r.Post("/", h.addMinter)
		r.Delete("/{address}", h.removeMinter)
	})

	r.Route("/gateway", func(r chi.Router) {
		r.Post("/deposits", h.gatewayDeposit)
		r.Post("/withdrawals", h.gatewayWithdraw)
		r.Get("/receipts", h.gatewayReceipts)
	})

	r.Route("/token", func(r chi.Router) {
		r.Get("/supply", h.canonicalSupply)
		r.Get("/balances/{holder}", h.canonicalBalance)
	})

	r.Post("/recover", h.recoverAsset)
	r.Get("/audit", h.governanceAudit)

	if application.Events != nil {
		r.Get("/ws/events", application.Events.Handler())
	}

	return r, nil
}

// --- swaps ---

func (h *handler) swapIn(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Token     string `json:"token"`
		Amount    string `json:"amount"`
		Recipient string `json:"recipient"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tok, err := parseAddress(payload.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recipient := caller
	if payload.Recipient != "" {
		if recipient, err = parseAddress(payload.Recipient); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	rcpt, err := h.app.Swaps.SwapIn(r.Context(), caller, tok, amount, recipient)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, swapReceiptView(rcpt))
}

func (h *handler) swapOut(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Token     string `json:"token"`
		Amount    string `json:"amount"`
		Recipient string `json:"recipient"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tok, err := parseAddress(payload.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recipient := caller
	if payload.Recipient != "" {
		if recipient, err = parseAddress(payload.Recipient); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	rcpt, err := h.app.Swaps.SwapOut(r.Context(), caller, tok, amount, recipient)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, swapReceiptView(rcpt))
}

func (h *handler) swapReceipts(w http.ResponseWriter, r *http.Request) {
	var tok common.Address
	if raw := r.URL.Query().Get("token"); raw != "" {
		parsed, err := parseAddress(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tok = parsed
	}

	receipts, err := h.app.Swaps.Receipts(r.Context(), tok, queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]map[string]any, 0, len(receipts))
	for _, rcpt := range receipts {
		out = append(out, swapReceiptView(rcpt))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- bridge registry ---

func (h *handler) listBridges(w http.ResponseWriter, r *http.Request) {
	bridges, err := h.app.Registry.Bridges(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]map[string]any, 0, len(bridges))
	for _, cfg := range bridges {
		out = append(out, bridgeView(cfg))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) registerBridge(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Token       string `json:"token"`
		Cap         string `json:"cap"`
		HourlyLimit string `json:"hourly_limit"`
		Fee         uint64 `json:"fee"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tok, err := parseAddress(payload.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cap, err := parseAmount(payload.Cap)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("cap: %w", err))
		return
	}
	limit, err := parseAmount(payload.HourlyLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("hourly_limit: %w", err))
		return
	}

	cfg, err := h.app.Registry.Register(r.Context(), caller, bridge.Config{
		Token:       tok,
		Cap:         cap,
		HourlyLimit: limit,
		Fee:         payload.Fee,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, bridgeView(cfg))
}

func (h *handler) getBridge(w http.ResponseWriter, r *http.Request) {
	tok, err := parseAddress(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.app.Registry.Bridge(r.Context(), tok)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	view := bridgeView(cfg)
	if used, err := h.app.Swaps.CurrentUsage(r.Context(), tok); err == nil {
		view["used"] = used.Dec()
	}
	if held, err := h.app.Swaps.Held(r.Context(), tok); err == nil {
		view["held"] = held.Dec()
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) updateBridge(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	tok, err := parseAddress(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var payload struct {
		Cap         *string `json:"cap"`
		HourlyLimit *string `json:"hourly_limit"`
		Fee         *uint64 `json:"fee"`
		Paused      *bool   `json:"paused"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.app.Registry.Bridge(r.Context(), tok)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if payload.Cap != nil {
		cap, perr := parseAmount(*payload.Cap)
		if perr != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("cap: %w", perr))
			return
		}
		if cfg, err = h.app.Registry.SetCap(r.Context(), caller, tok, cap); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	if payload.HourlyLimit != nil {
		limit, perr := parseAmount(*payload.HourlyLimit)
		if perr != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("hourly_limit: %w", perr))
			return
		}
		if cfg, err = h.app.Registry.SetHourlyLimit(r.Context(), caller, tok, limit); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	if payload.Fee != nil {
		if cfg, err = h.app.Registry.SetFee(r.Context(), caller, tok, *payload.Fee); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	if payload.Paused != nil && *payload.Paused != cfg.Paused {
		paused, terr := h.app.Registry.TogglePaused(r.Context(), caller, tok)
		if terr != nil {
			writeError(w, statusFor(terr), terr)
			return
		}
		cfg.Paused = paused
	}

	writeJSON(w, http.StatusOK, bridgeView(cfg))
}

func (h *handler) deregisterBridge(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	tok, err := parseAddress(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Registry.Deregister(r.Context(), caller, tok); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- usage views ---

func (h *handler) bridgeUsage(w http.ResponseWriter, r *http.Request) {
	tok, err := parseAddress(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.app.Registry.Bridge(r.Context(), tok)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	hour, used, err := h.usageAt(r, func(hr int64) (*uint256.Int, error) {
		return h.app.Swaps.UsageAt(r.Context(), tok, hr)
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":        tok.Hex(),
		"hour":         hour,
		"used":         used.Dec(),
		"hourly_limit": decOrZero(cfg.HourlyLimit),
	})
}

func (h *handler) totalUsage(w http.ResponseWriter, r *http.Request) {
	hour, used, err := h.usageAt(r, func(hr int64) (*uint256.Int, error) {
		return h.app.Swaps.TotalUsageAt(r.Context(), hr)
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	limit, err := h.app.Registry.ChainHourlyLimit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hour":         hour,
		"used":         used.Dec(),
		"hourly_limit": decOrZero(limit),
	})
}

// usageAt reads the bucket for the current hour, or for ?hour=N when given.
func (h *handler) usageAt(r *http.Request, read func(int64) (*uint256.Int, error)) (int64, *uint256.Int, error) {
	hour := ledger.HourIndex(time.Now())
	if raw := r.URL.Query().Get("hour"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return 0, nil, fmt.Errorf("hour must be a non-negative integer")
		}
		hour = parsed
	}
	used, err := read(hour)
	if err != nil {
		return 0, nil, err
	}
	return hour, used, nil
}

// --- chain limit ---

func (h *handler) getChainLimit(w http.ResponseWriter, r *http.Request) {
	limit, err := h.app.Registry.ChainHourlyLimit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hourly_limit": decOrZero(limit)})
}

func (h *handler) setChainLimit(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		HourlyLimit string `json:"hourly_limit"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := parseAmount(payload.HourlyLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("hourly_limit: %w", err))
		return
	}

	if err := h.app.Registry.SetChainHourlyLimit(r.Context(), caller, limit); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hourly_limit": limit.Dec()})
}

// --- fee exemptions ---

func (h *handler) listExemptions(w http.ResponseWriter, r *http.Request) {
	exempt, err := h.app.Registry.FeeExemptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, addressList(exempt))
}

func (h *handler) toggleExemption(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Address string `json:"address"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := parseAddress(payload.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	exempt, err := h.app.Registry.ToggleFeeExemption(r.Context(), caller, addr)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr.Hex(), "exempt": exempt})
}

// --- minters ---

func (h *handler) listMinters(w http.ResponseWriter, r *http.Request) {
	minters, err := h.app.Tokens.Minters(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, addressList(minters))
}

func (h *handler) addMinter(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Address string `json:"address"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := parseAddress(payload.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Tokens.AddMinter(r.Context(), caller, addr); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) removeMinter(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Tokens.RemoveMinter(r.Context(), caller, addr); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- gateway ---

func (h *handler) gatewayDeposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		User    string          `json:"user"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := parseAddress(payload.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rcpt, err := h.app.Gateway.Deposit(r.Context(), caller, user, payload.Payload)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, gatewayReceiptView(rcpt))
}

func (h *handler) gatewayWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rcpt, err := h.app.Gateway.Withdraw(r.Context(), caller, amount)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, gatewayReceiptView(rcpt))
}

func (h *handler) gatewayReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.app.Gateway.Receipts(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]map[string]any, 0, len(receipts))
	for _, rcpt := range receipts {
		out = append(out, gatewayReceiptView(rcpt))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- canonical token ---

func (h *handler) canonicalSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.app.Tokens.CanonicalSupply(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"supply": supply.Dec()})
}

func (h *handler) canonicalBalance(w http.ResponseWriter, r *http.Request) {
	holder, err := parseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	balance, err := h.app.Tokens.CanonicalBalance(r.Context(), holder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"holder": holder.Hex(), "balance": balance.Dec()})
}

// --- governance extras ---

func (h *handler) recoverAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Asset  string `json:"asset"`
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAddress(payload.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseAddress(payload.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Registry.RecoverAsset(r.Context(), caller, asset, to, amount); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) governanceAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.Registry.AuditTrail(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"id":         entry.ID,
			"caller":     entry.Caller.Hex(),
			"role":       string(entry.Role),
			"action":     entry.Action,
			"target":     entry.Target,
			"detail":     entry.Detail,
			"created_at": entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- system ---

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) systemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.app.StartedAt).Seconds()),
		"services":       h.app.System.Names(),
	}
	if h.app.Events != nil {
		status["event_clients"] = h.app.Events.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) httpAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.audit.listLimit(queryLimit(r)))
}

// --- helpers ---

func (h *handler) requireCaller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("caller identity required"))
		return common.Address{}, false
	}
	return caller, true
}

func bridgeView(cfg bridge.Config) map[string]any {
	return map[string]any{
		"token":        cfg.Token.Hex(),
		"cap":          decOrZero(cfg.Cap),
		"hourly_limit": decOrZero(cfg.HourlyLimit),
		"fee":          cfg.Fee,
		"allowed":      cfg.Allowed,
		"paused":       cfg.Paused,
		"created_at":   cfg.CreatedAt,
		"updated_at":   cfg.UpdatedAt,
	}
}

func swapReceiptView(rcpt swap.Receipt) map[string]any {
	return map[string]any{
		"id":         rcpt.ID,
		"direction":  string(rcpt.Direction),
		"token":      rcpt.Token.Hex(),
		"caller":     rcpt.Caller.Hex(),
		"recipient":  rcpt.Recipient.Hex(),
		"requested":  rcpt.Requested,
		"accepted":   rcpt.Accepted,
		"realized":   rcpt.Realized,
		"fee":        rcpt.Fee,
		"hour":       rcpt.Hour,
		"created_at": rcpt.CreatedAt,
	}
}

func gatewayReceiptView(rcpt gateway.Receipt) map[string]any {
	return map[string]any{
		"id":         rcpt.ID,
		"operation":  string(rcpt.Operation),
		"user":       rcpt.User.Hex(),
		"amount":     rcpt.Amount,
		"digest":     rcpt.Digest.Hex(),
		"created_at": rcpt.CreatedAt,
	}
}

func addressList(addrs []common.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.Hex())
	}
	return out
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%q is not a hex address", raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	if raw == "" {
		return uint256.NewInt(0), nil
	}
	amount, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("amount %q is not a decimal integer", raw)
	}
	return amount, nil
}

func decOrZero(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrNotAuthorized),
		errors.Is(err, token.ErrNotMinter),
		errors.Is(err, gateway.ErrNotDepositor):
		return http.StatusForbidden
	case errors.Is(err, bridge.ErrUnknownBridge),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrExposureOutstanding),
		errors.Is(err, gateway.ErrDuplicateDeposit):
		return http.StatusConflict
	case errors.Is(err, bridge.ErrHourlyLimitExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
