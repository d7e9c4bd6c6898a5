package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptotrade/cryptotrade/internal/account"
)

func registerAccountRoutes(router fiber.Router, h *account.Handler) {
	group := router.Group("/accounts")
	group.Post("/", h.Create)
	group.Get("/:accountId/wallets", h.Wallets)
}
