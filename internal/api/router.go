package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/shop-order-backend/internal/api/middleware"
	"github.com/example/shop-order-backend/internal/auth"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, tokens *auth.TokenService) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.Auth(tokens)
	requireAdmin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireRole(auth.RoleAdmin)(h))
	}

	// Auth
	mux.HandleFunc("/auth/register", methodHandler(http.MethodPost, authHandlers.Register))
	mux.HandleFunc("/auth/login", methodHandler(http.MethodPost, authHandlers.Login))
	mux.HandleFunc("/auth/logout", methodHandler(http.MethodPost, authHandlers.Logout))
	mux.HandleFunc("/auth/refresh", methodHandler(http.MethodPost, authHandlers.Refresh))
	mux.Handle("/auth/me", requireAuth(methodHandler(http.MethodGet, authHandlers.Me)))

	// Cart
	mux.Handle("/cart", requireAuth(methodHandler(http.MethodGet, handlers.GetCart)))
	mux.Handle("/cart/items", requireAuth(methodHandler(http.MethodPost, handlers.AddToCart)))
	mux.Handle("/cart/items/", requireAuth(methodHandler(http.MethodDelete, handlers.RemoveFromCart)))

	// Orders
	mux.Handle("/orders", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListOrders(w, r)
		case http.MethodPost:
			handlers.CreateOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/orders/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/cancel") && r.Method == http.MethodPost:
			handlers.CancelOrder(w, r)
		case strings.HasSuffix(path, "/refund") && r.Method == http.MethodPost:
			handlers.RefundOrder(w, r)
		case r.Method == http.MethodGet:
			handlers.GetOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Payment gateway return callback. The gateway redirects the customer's
	// browser here, so no auth; the signed query string is the credential.
	mux.HandleFunc("/payment/return", methodHandler(http.MethodGet, handlers.PaymentReturn))

	// Admin
	mux.Handle("/admin/orders", requireAdmin(handlers.AdminListOrders))
	mux.Handle("/admin/orders/", requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/status") && r.Method == http.MethodPut:
			handlers.AdminUpdateStatus(w, r)
		case strings.HasSuffix(path, "/payment-status") && r.Method == http.MethodPut:
			handlers.AdminUpdatePaymentStatus(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	return withLogging(mux)
}

func methodHandler(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
