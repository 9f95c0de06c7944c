package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/shop-order-backend/internal/api/middleware"
	"github.com/example/shop-order-backend/internal/checkout"
	"github.com/example/shop-order-backend/internal/domain/order"
	"github.com/example/shop-order-backend/internal/infrastructure/store"
)

type createOrderRequest struct {
	Items           []checkout.ItemInput `json:"items"`
	ShippingAddress order.Address        `json:"shipping_address"`
	PaymentMethod   order.PaymentMethod  `json:"payment_method"`
	CouponCode      string               `json:"coupon_code"`
	Note            string               `json:"note"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.checkout.CreateOrder(r.Context(), checkout.CreateOrderInput{
		UserID:          userID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		Note:            req.Note,
		ClientIP:        clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := extractPathParam(r.URL.Path, "/orders/")
	o, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if o.UserID != middleware.GetUserID(r.Context()) && !isAdmin(r) {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	q := r.URL.Query()
	orders, err := h.ledger.ListByUser(r.Context(), userID, queryInt(q.Get("limit"), 50), queryInt(q.Get("offset"), 0))
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/cancel")

	o, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if o.UserID != middleware.GetUserID(r.Context()) && !isAdmin(r) {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	var req cancelOrderRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.orders.Cancel(r.Context(), orderID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Admin handlers

func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.OrderFilter{
		Status:        order.Status(q.Get("status")),
		PaymentStatus: order.PaymentStatus(q.Get("payment_status")),
		UserID:        q.Get("user_id"),
		Limit:         queryInt(q.Get("limit"), 50),
		Offset:        queryInt(q.Get("offset"), 0),
	}

	orders, err := h.ledger.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type updateStatusRequest struct {
	Status order.Status `json:"status"`
}

func (h *Handlers) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/admin/orders/"), "/status")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

type updatePaymentStatusRequest struct {
	PaymentStatus order.PaymentStatus `json:"payment_status"`
}

func (h *Handlers) AdminUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/admin/orders/"), "/payment-status")

	var req updatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.UpdatePaymentStatus(r.Context(), orderID, req.PaymentStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
