package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okatech-org/consulat-sub002/internal/audit"
	"github.com/okatech-org/consulat-sub002/internal/finalization"
	"github.com/okatech-org/consulat-sub002/internal/platform/config"
	"github.com/okatech-org/consulat-sub002/internal/platform/httpserver"
	"github.com/okatech-org/consulat-sub002/internal/platform/logger"
	platformredis "github.com/okatech-org/consulat-sub002/internal/platform/redis"
	"github.com/okatech-org/consulat-sub002/internal/profile"
	"github.com/okatech-org/consulat-sub002/internal/request/guard"
	"github.com/okatech-org/consulat-sub002/internal/request/handler"
	"github.com/okatech-org/consulat-sub002/internal/request/ledger"
	"github.com/okatech-org/consulat-sub002/internal/request/metrics"
	"github.com/okatech-org/consulat-sub002/internal/request/service"
	requeststore "github.com/okatech-org/consulat-sub002/internal/request/store"
	"github.com/okatech-org/consulat-sub002/internal/staff"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	var (
		requests requeststore.Store
		profiles profile.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		requests = requeststore.NewPostgres(db)
		profiles = profile.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		requests = requeststore.NewInMemoryStore()
		profiles = profile.NewInMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	var finalizer finalization.Finalizer = finalization.NewLogFinalizer(log)
	if redisClient != nil {
		defer redisClient.Close()
		finalizer = finalization.NewRedisFinalizer(redisClient.Client, cfg.HandoverQueueKey)
	}

	var publisher audit.Publisher = audit.NewMemoryPublisher()
	var kafkaPublisher *audit.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err = audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, audit.WithKafkaLogger(log))
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
	}

	reviewMetrics := metrics.New()
	g := guard.New(guard.Policy{AllowReopenRejected: cfg.AllowReopenRejected})

	reviewService := service.New(requests, profiles, g,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(reviewMetrics),
		service.WithFinalizer(finalizer),
	)
	requestLedger := ledger.New(requests, ledger.WithLogger(log))

	tokens := staff.NewTokenService(cfg.JWTSigningKey, "consulat-portal", "consulat-staff")

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	handler.New(reviewService, requestLedger, log, tokens).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting consular request portal", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(ctx); err != nil {
			log.Error("flush audit events failed", "error", err)
		}
	}
}
