package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptotrade/cryptotrade/internal/portfolio"
)

func registerPortfolioRoutes(router fiber.Router, h *portfolio.Handler) {
	router.Get("/portfolio/:accountId", h.Value)

	group := router.Group("/leaderboard")
	group.Get("/", h.Leaderboard)
	group.Get("/coin/:currency", h.CoinLeaderboard)
	group.Get("/rank/:accountId", h.Rank)
}
