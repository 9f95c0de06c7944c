package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/example/shop-order-backend/internal/api/middleware"
	"github.com/example/shop-order-backend/internal/checkout"
	"github.com/example/shop-order-backend/internal/domain/coupon"
	"github.com/example/shop-order-backend/internal/domain/order"
	"github.com/example/shop-order-backend/internal/gateway"
	"github.com/example/shop-order-backend/internal/infrastructure/store"
	"github.com/example/shop-order-backend/internal/payment"
)

type Handlers struct {
	checkout *checkout.Coordinator
	orders   *order.Service
	payments *payment.Service
	ledger   store.OrderStore
	carts    store.CartStore
	catalog  store.CatalogStore
}

func NewHandlers(
	co *checkout.Coordinator,
	orders *order.Service,
	payments *payment.Service,
	ledger store.OrderStore,
	carts store.CartStore,
	catalog store.CatalogStore,
) *Handlers {
	return &Handlers{
		checkout: co,
		orders:   orders,
		payments: payments,
		ledger:   ledger,
		carts:    carts,
		catalog:  catalog,
	}
}

// Cart handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	items, err := h.carts.Items(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []store.CartItem{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req store.CartItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" || req.VariantID == "" || req.Quantity < 1 {
		respondError(w, "product_id, variant_id and quantity >= 1 are required", http.StatusBadRequest)
		return
	}

	// Reject variants that do not exist before they pollute the cart.
	if _, err := h.catalog.GetVariant(r.Context(), req.ProductID, req.VariantID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.carts.AddItem(r.Context(), userID, req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	key := extractPathParam(r.URL.Path, "/cart/items/")

	productID, variantID, ok := strings.Cut(key, ":")
	if !ok {
		respondError(w, "item key must be productID:variantID", http.StatusBadRequest)
		return
	}
	err := h.carts.RemoveItems(r.Context(), userID, []store.CartItemRef{
		{ProductID: productID, VariantID: variantID},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses. Conflicts carry their
// structured detail so the client can act on the specific offending items.
func writeError(w http.ResponseWriter, err error) {
	var (
		priceErr  *checkout.PriceChangedError
		stockErr  *checkout.InsufficientStockError
		couponErr *coupon.RejectedError
	)
	switch {
	case errors.As(err, &priceErr):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":           priceErr.Error(),
			"price_changes":   priceErr.Changes,
			"corrected_items": priceErr.CorrectedItems,
		})
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":      stockErr.Error(),
			"product_id": stockErr.ProductID,
			"variant_id": stockErr.VariantID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.As(err, &couponErr):
		respondError(w, couponErr.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrVariantNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrTerminalState),
		errors.Is(err, order.ErrInvalidStatus):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrAddressIncomplete),
		errors.Is(err, order.ErrInvalidPayMethod),
		errors.Is(err, checkout.ErrNoItems),
		errors.Is(err, checkout.ErrInvalidQuantity):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, payment.ErrSignatureInvalid),
		errors.Is(err, payment.ErrAmountMismatch):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, payment.ErrRefundPrecondition):
		respondError(w, err.Error(), http.StatusPreconditionFailed)
	case errors.Is(err, gateway.ErrUnavailable):
		respondError(w, err.Error(), http.StatusBadGateway)
	default:
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	return ok && claims.IsAdmin()
}

// clientIP resolves the caller's IP, preferring the first X-Forwarded-For
// entry set by the reverse proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(ip)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
