package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptotrade/cryptotrade/internal/market"
)

func registerMarketRoutes(router fiber.Router, h *market.Handler) {
	group := router.Group("/orders")
	group.Post("/", h.Execute)
	group.Get("/", h.History)
}
