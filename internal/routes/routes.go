package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cryptotrade/cryptotrade/internal/account"
	"github.com/cryptotrade/cryptotrade/internal/bonus"
	"github.com/cryptotrade/cryptotrade/internal/config"
	"github.com/cryptotrade/cryptotrade/internal/escrow"
	"github.com/cryptotrade/cryptotrade/internal/ledger"
	"github.com/cryptotrade/cryptotrade/internal/market"
	"github.com/cryptotrade/cryptotrade/internal/middleware"
	"github.com/cryptotrade/cryptotrade/internal/portfolio"
	"github.com/cryptotrade/cryptotrade/internal/pricing"
)

// Deps carries the shared infrastructure handed to route registration.
// DB and Cache may be nil in development; the in-memory backends take
// their place so the API stays fully usable without external services.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup wires middleware, feature services and all HTTP routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:X-Request-ID} ${status} ${method} ${path} ${latency}\n",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	registerHealthRoutes(app, d)

	var (
		store   ledger.Store
		pgStore *ledger.PostgresStore
	)
	if d.DB != nil {
		pgStore = ledger.NewPostgresStore(d.DB)
		store = pgStore
	} else {
		store = ledger.NewInMemory()
	}

	var accountRepo account.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB, pgStore)
	} else {
		accountRepo = account.NewMemoryRepository(store)
	}
	accountSvc := account.NewService(accountRepo, d.Cfg.Currencies, d.Cfg.BaseCurrency, d.Cfg.InitialBalance)

	house, err := accountSvc.EnsureHouse(context.Background())
	if err != nil {
		return fmt.Errorf("ensure house account: %w", err)
	}

	var oracle pricing.Oracle
	if d.Cache != nil {
		oracle = pricing.NewRedisOracle(d.Cache)
	} else {
		// No price feed in pure in-memory mode; every quote reads as unavailable
		// until tests or tooling swap in a static oracle.
		oracle = pricing.NewStatic(nil)
	}

	var marketRepo market.Repository
	if d.DB != nil {
		marketRepo = market.NewPostgresRepository(d.DB)
	} else {
		marketRepo = market.NewMemoryRepository()
	}
	marketSvc := market.NewService(store, marketRepo, d.Cfg.FeeRate, house.ID, d.Logger)

	var escrowRepo escrow.Repository
	if d.DB != nil {
		escrowRepo = escrow.NewPostgresRepository(d.DB, pgStore)
	} else {
		escrowRepo = escrow.NewMemoryRepository(store, accountRepo)
	}
	escrowSvc := escrow.NewService(escrowRepo)

	var bonusRepo bonus.Repository
	if d.DB != nil {
		bonusRepo = bonus.NewPostgresRepository(d.DB, pgStore)
	} else {
		bonusRepo = bonus.NewMemoryRepository(store)
	}
	bonusSvc := bonus.NewService(bonusRepo, store, d.Cfg.BonusAmount, d.Cfg.BaseCurrency, d.Cfg.BonusCooldown)

	portfolioSvc := portfolio.NewService(accountRepo, store, d.Cfg.BaseCurrency)

	api := app.Group("/api/v1")
	registerAccountRoutes(api, account.NewHandler(accountSvc, store))
	registerMarketRoutes(api, market.NewHandler(marketSvc, oracle))
	registerOfferRoutes(api, escrow.NewHandler(escrowSvc))
	registerBonusRoutes(api, bonus.NewHandler(bonusSvc))
	registerPortfolioRoutes(api, portfolio.NewHandler(portfolioSvc, oracle, d.Cfg.Currencies))

	return nil
}
