package handler

import (
	"account-ledger/internal/adapter/http/middleware"
	redisStore "account-ledger/internal/adapter/storage/redis"
	"account-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	UserSvc        ports.UserService
	AccountSvc     ports.AccountService
	BalanceSvc     ports.BalanceService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService   // nil = audit logging disabled
	Metrics        *prometheus.Registry // nil = no /metrics endpoint
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	userHandler := NewUserHandler(deps.UserSvc)
	v1.POST("/users", rl(middleware.GroupUsers), userHandler.CreateUser)

	accountHandler := NewAccountHandler(deps.AccountSvc)
	accounts := v1.Group("/accounts", rl(middleware.GroupAccounts))
	{
		accounts.POST("", accountHandler.CreateAccount)
		accounts.DELETE("", accountHandler.CloseAccount)
		accounts.GET("", accountHandler.ListAccounts)
		accounts.GET("/:number/transactions", accountHandler.ListTransactions)
	}

	txHandler := NewTransactionHandler(deps.BalanceSvc)
	transactions := v1.Group("/transactions")
	{
		transactions.POST("/use", rl(middleware.GroupTransactionsWrite), txHandler.UseBalance)
		transactions.POST("/cancel", rl(middleware.GroupTransactionsWrite), txHandler.CancelBalance)
		transactions.GET("/:id", rl(middleware.GroupTransactionsRead), txHandler.QueryTransaction)
	}

	return r
}
