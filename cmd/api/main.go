package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/shop-order-backend/internal/api"
	"github.com/example/shop-order-backend/internal/auth"
	"github.com/example/shop-order-backend/internal/checkout"
	"github.com/example/shop-order-backend/internal/config"
	"github.com/example/shop-order-backend/internal/domain/order"
	"github.com/example/shop-order-backend/internal/gateway"
	cartstore "github.com/example/shop-order-backend/internal/infrastructure/cart"
	"github.com/example/shop-order-backend/internal/infrastructure/kafka"
	"github.com/example/shop-order-backend/internal/infrastructure/store"
	"github.com/example/shop-order-backend/internal/payment"
	"github.com/example/shop-order-backend/internal/sweep"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Configuration error: %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Shop Order Backend")
	log.Println("[API] ========================================")
	log.Printf("[API] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[API] Topic: %s", cfg.KafkaTopic)
	log.Printf("[API] Redis: %s", cfg.RedisAddr)

	// PostgreSQL
	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	if err := store.EnsureSchema(db); err != nil {
		log.Fatalf("[API] Failed to ensure schema: %v", err)
	}
	log.Println("[API] Connected to PostgreSQL")

	// Payment gateway client; a missing secret is fatal at startup.
	gw, err := gateway.New(gateway.Config{
		PayURL:     cfg.GatewayPayURL,
		APIURL:     cfg.GatewayAPIURL,
		TmnCode:    cfg.GatewayTmnCode,
		HashSecret: cfg.GatewayHashSecret,
		ReturnURL:  cfg.GatewayReturnURL,
	})
	if err != nil {
		log.Fatalf("[API] Gateway configuration error: %v", err)
	}

	// Kafka producer for order lifecycle events
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	// Stores
	txManager := store.NewTxManager(db)
	catalog := store.NewPostgresCatalog(db)
	coupons := store.NewPostgresCoupons(db)
	orders := store.NewPostgresOrders(db)
	users := store.NewPostgresUsers(db)
	carts := cartstore.NewRedisStore(cfg.RedisAddr)

	// Services
	orderSvc := order.NewService(txManager, orders, catalog, coupons, producer)
	coordinator := checkout.NewCoordinator(txManager, catalog, coupons, orders, carts, gw, producer)
	paymentSvc := payment.NewService(gw, orderSvc)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessExpiry, cfg.RefreshExpiry)

	// Abandoned-order sweeper
	sweeper := sweep.New(orders, orderSvc, cfg.SweepInterval, cfg.AbandonAfter)
	go sweeper.Run(ctx)

	// HTTP
	handlers := api.NewHandlers(coordinator, orderSvc, paymentSvc, orders, carts, catalog)
	authHandlers := api.NewAuthHandlers(users, tokens)
	router := api.NewRouter(handlers, authHandlers, tokens)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}
