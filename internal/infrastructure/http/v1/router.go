// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"unistock/internal/domain/catalog"
	"unistock/internal/domain/ledger"
	"unistock/internal/domain/purchase"
	"unistock/internal/domain/reports"
	"unistock/internal/domain/sale"
	"unistock/internal/infrastructure/http/v1/handlers"
	"unistock/internal/infrastructure/http/v1/middleware"
	"unistock/internal/infrastructure/metrics"
	"unistock/internal/infrastructure/storage/postgres"
	"unistock/internal/infrastructure/storage/postgres/catalog_repo"
	"unistock/internal/infrastructure/storage/postgres/ledger_repo"
	"unistock/internal/infrastructure/storage/postgres/order_repo"
	"unistock/pkg/logger"
	"unistock/pkg/numerator"
)

// RouterConfig holds everything the router needs to wire the API.
type RouterConfig struct {
	// Pool is the database connection pool (used by health checks).
	Pool *postgres.Pool

	// TxManager drives transactions for all repositories.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	// Numerator issues document numbers.
	Numerator *numerator.Service

	// Metrics is optional; nil disables instrumentation and /metrics.
	Metrics *metrics.Metrics

	// Audit is optional; nil disables the order audit trail.
	Audit *postgres.AuditService

	// IdempotencyEnabled enables the idempotency middleware on mutations.
	IdempotencyEnabled bool

	// IdempotencyTTL bounds how long completed keys are replayable.
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	healthHandler.RegisterRoutes(&router.RouterGroup)

	// Repositories share one transaction manager.
	catalogRepo := catalog_repo.NewRepo(cfg.TxManager)
	ledgerStore := ledger_repo.NewStore(cfg.TxManager)
	balances := ledger_repo.NewBalances(cfg.TxManager)
	purchaseRepo := order_repo.NewPurchaseRepo(cfg.TxManager)
	saleRepo := order_repo.NewSaleRepo(cfg.TxManager)

	// Domain services.
	catalogService := catalog.NewService(catalogRepo)
	ledgerService := ledger.NewService(ledgerStore, balances, cfg.TxManager)
	purchaseService := purchase.NewService(purchaseRepo, catalogService, cfg.Numerator, ledgerService, balances, cfg.TxManager)
	saleService := sale.NewService(saleRepo, catalogService, cfg.Numerator, ledgerService, balances, balances, cfg.TxManager)
	reportsService := reports.NewService(ledgerStore, saleRepo, purchaseRepo, catalogService, cfg.TxManager)

	base := handlers.NewBaseHandler()

	// API v1: everything behind JWT.
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.IdempotencyEnabled {
		store := postgres.NewIdempotencyStore(cfg.TxManager, cfg.IdempotencyTTL)
		v1.Use(middleware.Idempotency(store))
	}

	catalogHandler := handlers.NewCatalogHandler(base, catalogService)
	catalogHandler.RegisterRoutes(v1.Group("/catalog"))

	ledgerHandler := handlers.NewLedgerHandler(base, ledgerService)
	ledgerHandler.RegisterRoutes(v1.Group("/ledger"))

	balanceHandler := handlers.NewBalanceHandler(base, balances, balances, cfg.Metrics)
	balanceHandler.RegisterRoutes(v1.Group("/balances"))
	balanceHandler.RegisterAdminRoutes(v1.Group("/balances", middleware.RequireRole("admin")))

	purchaseHandler := handlers.NewPurchaseHandler(base, purchaseService, cfg.Metrics, cfg.Audit)
	purchaseHandler.RegisterRoutes(v1.Group("/purchase-orders"))

	saleHandler := handlers.NewSaleHandler(base, saleService, cfg.Metrics, cfg.Audit)
	saleHandler.RegisterRoutes(v1.Group("/sale-orders"))

	reportsHandler := handlers.NewReportsHandler(base, reportsService)
	reportsHandler.RegisterRoutes(v1.Group("/reports"))

	return router
}
