package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"account-ledger/config"
	httpHandler "account-ledger/internal/adapter/http/handler"
	memStorage "account-ledger/internal/adapter/storage/memory"
	pgStorage "account-ledger/internal/adapter/storage/postgres"
	redisStorage "account-ledger/internal/adapter/storage/redis"
	"account-ledger/internal/core/ports"
	"account-ledger/internal/lock"
	"account-ledger/internal/service"
	"account-ledger/pkg/logger"
	"account-ledger/pkg/metrics"
	promMetrics "account-ledger/pkg/metrics/prometheus"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// storage bundles the repositories of one driver.
type storage struct {
	users      ports.UserRepository
	accounts   ports.AccountRepository
	txns       ports.TransactionRepository
	audits     ports.AuditRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func main() {
	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("lock", cfg.Lock.Backend).
		Msg("Starting account ledger")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")
	}

	// Metrics
	var (
		collector metrics.Collector = metrics.NoOpCollector{}
		registry  *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom := promMetrics.NewCollector(cfg.Metrics.Namespace)
		if err := prom.Register(registry); err != nil {
			log.Fatal().Err(err).Msg("Failed to register metrics")
		}
		collector = prom
	}

	locker, local := newLocker(cfg.Lock, rdb, collector, log)
	if registry != nil {
		registry.MustRegister(promMetrics.NewHeldLocksGauge(cfg.Metrics.Namespace, local.Held))
	}

	var (
		txCache        ports.TransactionCache
		rateLimitStore *redisStorage.RateLimitStore
		healthCheckers = []ports.HealthChecker{store.health}
	)
	if rdb != nil {
		txCache = redisStorage.NewTransactionCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Business services
	recorder := service.NewRecorder(store.txns, store.transactor, collector, log)
	balanceSvc := service.NewBalanceService(
		store.users,
		store.accounts,
		store.txns,
		store.transactor,
		recorder,
		locker,
		txCache,
		cfg.Cache.TransactionTTL,
		collector,
		log,
	)
	accountSvc := service.NewAccountService(store.users, store.accounts, store.txns, store.transactor, locker, log)
	userSvc := service.NewUserService(store.users, log)
	auditSvc := service.NewAuditService(store.audits, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		UserSvc:        userSvc,
		AccountSvc:     accountSvc,
		BalanceSvc:     balanceSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		Metrics:        registry,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*storage, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		s := memStorage.NewStore()
		return &storage{
			users:      memStorage.NewUserRepo(s),
			accounts:   memStorage.NewAccountRepo(s),
			txns:       memStorage.NewTransactionRepo(s),
			audits:     memStorage.NewAuditRepo(s),
			transactor: memStorage.NewTransactor(s),
			health:     memStorage.HealthCheck{},
			close:      func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("PostgreSQL connected")

	return &storage{
		users:      pgStorage.NewUserRepo(pool),
		accounts:   pgStorage.NewAccountRepo(pool),
		txns:       pgStorage.NewTransactionRepo(pool),
		audits:     pgStorage.NewAuditRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

// newLocker builds the account lock. The redis backend layers the distributed
// lease under the in-process queue, and the wait timeout spans both.
func newLocker(cfg config.LockConfig, rdb *goredis.Client, m metrics.Collector, log zerolog.Logger) (ports.AccountLocker, *lock.LocalLocker) {
	if cfg.Backend != config.LockBackendRedis || rdb == nil {
		local := lock.NewLocalLocker(cfg.WaitTimeout, m)
		return local, local
	}

	remote := redisStorage.NewAccountLock(rdb, redisStorage.AccountLockConfig{
		LeaseTTL:        cfg.LeaseTTL,
		RetryInterval:   cfg.RetryInterval,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}, m, log)
	local := lock.NewLocalLocker(0, m)
	return lock.NewLayered(local, remote, cfg.WaitTimeout), local
}
