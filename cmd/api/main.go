package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/wallet-ledger/internal/activity"
	"github.com/josh-kwaku/wallet-ledger/internal/config"
	"github.com/josh-kwaku/wallet-ledger/internal/handler"
	"github.com/josh-kwaku/wallet-ledger/internal/idempotency"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/middleware"
	"github.com/josh-kwaku/wallet-ledger/internal/repository"
	"github.com/josh-kwaku/wallet-ledger/internal/service"
	"github.com/josh-kwaku/wallet-ledger/internal/service/ledger"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("wallet-ledger-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache := connectRedis(cfg.RedisURL)
	if cache != nil {
		defer cache.Close()
	}

	users := repository.NewUserRepository(db)
	wallets := repository.NewWalletRepository(db)
	transactions := repository.NewTransactionRepository(db)
	snapshots := repository.NewBalanceSnapshotRepository(db)
	recorder := activity.NewRecorder(repository.NewActivityLogRepository(db))
	uow := repository.NewDB(db)

	ledgerSvc := ledger.NewService(
		uow,
		wallets,
		users,
		transactions,
		idempotency.NewGuard(transactions, cache, cfg.IdempotencyReservationTTL),
		recorder,
		cfg.FeePolicy(),
		ledger.Limits{MinAmount: cfg.MinTransactionAmount, MaxAmount: cfg.MaxTransactionAmount},
	)
	accountSvc := service.NewAccountService(uow, wallets, recorder, 0)

	authHandler := handler.NewAuthHandler(users, accountSvc, cfg.JWTSecret, cfg.JWTExpiry)
	walletHandler := handler.NewWalletHandler(ledgerSvc, accountSvc)
	healthHandler := handler.NewHealthHandler(db, cache)

	protected := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("GET /api/v1/auth/me", protected(http.HandlerFunc(authHandler.Me)))

	mux.Handle("GET /api/v1/wallet", protected(http.HandlerFunc(walletHandler.Get)))
	mux.Handle("POST /api/v1/wallet/deposit", protected(http.HandlerFunc(walletHandler.Deposit)))
	mux.Handle("POST /api/v1/wallet/withdraw", protected(http.HandlerFunc(walletHandler.Withdraw)))
	mux.Handle("POST /api/v1/wallet/transfer", protected(http.HandlerFunc(walletHandler.Transfer)))
	mux.Handle("GET /api/v1/wallet/transactions", protected(http.HandlerFunc(walletHandler.Transactions)))
	mux.Handle("GET /api/v1/wallet/reconciliation", protected(http.HandlerFunc(walletHandler.Reconciliation)))

	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.Logging(h)
	h = middleware.Tracing(h)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := service.NewSnapshotWorker(wallets, snapshots, ledgerSvc, logger.With("component", "snapshot_worker"),
		cfg.SnapshotInterval, cfg.SnapshotRetentionDays)
	go worker.Start(workerCtx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "redis", cache != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var db *sql.DB
		db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}

// connectRedis returns nil when Redis is not configured or unreachable;
// idempotency then relies on the database constraint alone.
func connectRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := repository.NewRedisClient(ctx, url)
	if err != nil {
		slog.Warn("redis unavailable, continuing without in-flight reservations", "error", err)
		return nil
	}
	return client
}
