package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horsemarket-web/internal/api"
	"horsemarket-web/internal/config"
	"horsemarket-web/internal/content"
	"horsemarket-web/internal/dashboard"
	"horsemarket-web/internal/db"
	"horsemarket-web/internal/favorites"
	"horsemarket-web/internal/filter"
	"horsemarket-web/internal/kafka"
	"horsemarket-web/internal/logging"
	"horsemarket-web/internal/metrics"
	"horsemarket-web/internal/payment"
	"horsemarket-web/internal/session"
	"horsemarket-web/internal/web"
	"horsemarket-web/migrations"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

const (
	janitorInterval = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoadConfig(config.GetEnv("CONFIG_PATH", "."))

	logger := logging.GetLogger(cfg.Logs)
	metrics.Setup(cfg.Metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.API, logger)
	regions := filter.Load(ctx, client, logger)

	store, closeStore := sessionStore(ctx, cfg.Database, logger)
	defer closeStore()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	favoritesCache := favorites.NewCache(rdb, client, 0, logger)

	var publisher payment.OutcomePublisher
	if cfg.Kafka.Broker.URL != "" {
		writer := kafka.NewWriter(cfg.Kafka)
		defer writer.Close()
		publisher = kafka.NewOutcomePublisher(writer, cfg.Kafka.Writer, logger)
	} else {
		logger.Info("Kafka broker not configured, payment outcomes will not be published")
	}

	labels := payment.DefaultLabels()
	payments := payment.NewService(client, payment.Flows(cfg.Payment, labels), publisher, logger)

	sessions := session.NewManager(store, client, cfg.Session.TTL(), logger)
	sessions.StartJanitor(ctx, janitorInterval)

	server := web.NewServer(web.Deps{
		Server:    cfg.Server,
		Session:   cfg.Session,
		API:       client,
		Sessions:  sessions,
		Payments:  payments,
		Labels:    labels,
		Regions:   regions,
		Favorites: favoritesCache,
		Dashboard: dashboard.NewService(client, logger),
		Content:   content.NewService(client, logger),
		Logger:    logger,
	})
	defer server.Close()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", "error", err)
	}
}

// sessionStore uses Postgres when a database host is configured and falls back to memory.
func sessionStore(ctx context.Context, cfg config.Database, logger *slog.Logger) (session.Store, func()) {
	if cfg.Host == "" {
		logger.Warn("Database not configured, sessions are kept in memory")
		return session.NewMemoryStore(), func() {}
	}

	connStr := db.ConnString(cfg)
	if err := db.RunMigrations(connStr, migrations.FS); err != nil {
		logger.Error("Error running migrations", "error", err)
		os.Exit(1)
	}

	pool, err := db.GetPool(ctx, connStr)
	if err != nil {
		logger.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	return session.NewPgStore(pool), pool.Close
}
