package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/catalog"
	"github.com/rizkyfp/go-storefront/internal/checkout"
	"github.com/rizkyfp/go-storefront/internal/config"
	"github.com/rizkyfp/go-storefront/internal/httpx"
	"github.com/rizkyfp/go-storefront/internal/inventory"
	kafkax "github.com/rizkyfp/go-storefront/internal/kafka"
	"github.com/rizkyfp/go-storefront/internal/orders"
	"github.com/rizkyfp/go-storefront/internal/payment"
	"github.com/rizkyfp/go-storefront/internal/postgres"
	"github.com/rizkyfp/go-storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	decimal.MarshalJSONWithoutQuotes = true

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: settled orders and settlement incidents
	settled := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicOrderSettled, 1024, log)
	settled.Start()
	incidents := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicSettlementIncident, 1024, log)
	incidents.Start()

	// Payment gateways
	stripe := payment.NewStripeGateway(cfg.StripeAPIURL, cfg.StripeSecretKey, log)
	paypal := payment.NewPayPalGateway(cfg.PayPalAPIURL, cfg.PayPalClientID, cfg.PayPalSecret,
		cfg.PayPalReturnURL, cfg.PayPalCancelURL, log)
	gateway := &payment.Dispatcher{Stripe: stripe, PayPal: paypal}

	// Storage
	products := &catalog.CachedRepo{Repo: &catalog.Repo{DB: db}, Redis: rdb, Log: log}
	orderStore := &orders.PgStore{DB: db}

	orch := &checkout.Orchestrator{
		Catalog:   products,
		Ledger:    &inventory.PgLedger{DB: db},
		Gateway:   gateway,
		Store:     orderStore,
		Cache:     redisx.ProductInvalidator{RDB: rdb},
		Settled:   settled,
		Incidents: incidents,
		Service:   cfg.ServiceName,
		Log:       log,
	}

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Checkout: orch, Orders: orderStore, Log: log}).Register(router)
	(&httpx.PaymentsHandler{Gateway: gateway, PayPal: paypal, Log: log}).Register(router)
	(&httpx.ProductsHandler{Catalog: products, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	settled.Close()
	incidents.Close()
	settled.WaitClosed()
	incidents.WaitClosed()
}
