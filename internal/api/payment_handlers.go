package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/shop-order-backend/internal/api/middleware"
)

// PaymentReturn is the browser redirect target after the customer finishes
// (or abandons) payment on the gateway's page. The gateway signs the query
// string; verification happens before any order state is touched.
func (h *Handlers) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.payments.HandleReturn(r.Context(), r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

type refundRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) RefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/refund")

	o, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if o.UserID != middleware.GetUserID(r.Context()) && !isAdmin(r) {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	var req refundRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	requestedBy := "customer"
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		requestedBy = claims.Email
	}

	resp, err := h.payments.Refund(r.Context(), orderID, req.Reason, requestedBy, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
