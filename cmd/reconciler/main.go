package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/checkout"
	"github.com/rizkyfp/go-storefront/internal/config"
	kafkax "github.com/rizkyfp/go-storefront/internal/kafka"
	"github.com/rizkyfp/go-storefront/internal/postgres"
	"github.com/rizkyfp/go-storefront/internal/reconcile"
	"github.com/rizkyfp/go-storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	rec := &reconcile.Recorder{DB: db, Redis: rdb, Log: log}

	group := getenv("RECONCILER_GROUP", "settlement-reconciler")
	workers := mustAtoi(os.Getenv("RECONCILER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, checkout.TopicSettlementIncident, workers, log)

	go func() {
		log.Info("reconciler consumer started",
			zap.String("group", group),
			zap.String("topic", checkout.TopicSettlementIncident),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, rec.HandleIncident); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
