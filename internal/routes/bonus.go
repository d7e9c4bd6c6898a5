package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptotrade/cryptotrade/internal/bonus"
)

func registerBonusRoutes(router fiber.Router, h *bonus.Handler) {
	router.Post("/bonus/claim", h.Claim)
}
