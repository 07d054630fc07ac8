// Package httpapi exposes the registration and inventory operations over a
// JSON HTTP API, with bearer-token auth for operators and server-sent event
// streams mirroring the store's snapshot feeds.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vendafacil/backend/internal/alerts"
	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/notify"
	"vendafacil/backend/internal/sales"
	"vendafacil/backend/internal/store"
)

type API struct {
	store         store.InventoryStore
	registrar     *sales.Registrar
	alertEngine   *alerts.Engine
	auth          *AuthManager
	outcomes      *notify.Broadcaster
	allowedOrigin string
	loginLimiter  *attemptLimiter
	logger        *zap.Logger
}

func New(inv store.InventoryStore, registrar *sales.Registrar, alertEngine *alerts.Engine, auth *AuthManager, outcomes *notify.Broadcaster, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		store:         inv,
		registrar:     registrar,
		alertEngine:   alertEngine,
		auth:          auth,
		outcomes:      outcomes,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		logger:        logger,
	}
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, "operator", "admin"))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, "admin"))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, "operator", "admin"))
	mux.HandleFunc("/api/v1/sales/change", a.requireAuth(a.handleChange, "operator", "admin"))

	mux.HandleFunc("/api/v1/alerts", a.requireAuth(a.handleAlerts, "operator", "admin"))
	mux.HandleFunc("/api/v1/alerts/recompute", a.requireAuth(a.handleAlertRecompute, "admin"))
	mux.HandleFunc("/api/v1/alerts/", a.requireAuth(a.handleAlertActions, "operator", "admin"))

	mux.HandleFunc("/api/v1/stream/products", a.requireAuth(a.handleStreamProducts, "operator", "admin"))
	mux.HandleFunc("/api/v1/stream/sales", a.requireAuth(a.handleStreamSales, "operator", "admin"))
	mux.HandleFunc("/api/v1/stream/alerts", a.requireAuth(a.handleStreamAlerts, "operator", "admin"))
	mux.HandleFunc("/api/v1/stream/outcomes", a.requireAuth(a.handleStreamOutcomes, "operator", "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.store.ListProducts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		actor, ok := ActorFromContext(r.Context())
		if !ok || actor.Role != "admin" {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		product, err := a.store.AddProduct(r.Context(), req.ToProduct())
		if err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, store.ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/products/"
	productID := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if productID == "" {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}

	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	current, err := a.store.GetProductByID(r.Context(), productID)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	updated, err := a.store.UpdateProduct(r.Context(), req.Apply(*current))
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		if errors.Is(err, store.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"product": updated})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
		list, err := a.store.ListSales(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": list})
	case http.MethodPost:
		a.handleRegisterSale(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleRegisterSale(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	candidate := req.ToSale()
	if candidate.OperatorID == "" {
		candidate.OperatorID = actor.Username
	}

	saleID, err := a.registrar.RegisterSale(r.Context(), candidate)
	if err != nil {
		var partial *sales.PartialRegistrationError
		switch {
		case errors.As(err, &partial):
			// The sale is persisted even though the stock decrement failed.
			// Report success with the inconsistency spelled out so the
			// caller can reconcile instead of retrying a duplicate.
			writeJSON(w, http.StatusCreated, map[string]any{
				"sale_id": partial.SaleID,
				"partial": true,
				"warning": partial.Error(),
			})
		case errors.Is(err, sales.ErrInvalidSaleData):
			writeError(w, http.StatusUnprocessableEntity, err)
		case errors.Is(err, sales.ErrProductNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, sales.ErrInsufficientStock):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusBadGateway, err)
		}
		return
	}

	resp := domain.RegisterSaleResponse{
		SaleID:         saleID,
		TotalPrice:     candidate.UnitPrice.Mul(decimal.NewFromInt(int64(candidate.Quantity))),
		TaxRatePercent: a.registrar.TaxRatePercent(),
	}
	resp.TotalWithTax = resp.TotalPrice.Mul(resp.TaxRatePercent.Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1)))
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.ChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Total.IsNegative() || req.Received.IsNegative() {
		writeError(w, http.StatusBadRequest, errors.New("amounts must not be negative"))
		return
	}

	writeJSON(w, http.StatusOK, domain.ChangeResponse{
		Change: sales.CalculateChange(req.Total, req.Received),
	})
}

func (a *API) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	list, err := a.store.ListAlerts(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": list})
}

func (a *API) handleAlertRecompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	appended, err := a.alertEngine.Recompute(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appended": appended})
}

func (a *API) handleAlertActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/alerts/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("alert id required"))
		return
	}

	if strings.HasSuffix(tail, "/read") {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		alertID := strings.Trim(strings.TrimSuffix(tail, "/read"), "/")
		if err := a.store.MarkAlertRead(r.Context(), alertID); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.store.DeleteAlert(r.Context(), tail); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(startedAt)))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses carry a generic message so internal details never reach
	// the client; 4xx messages are user facing.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
