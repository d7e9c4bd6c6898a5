package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptotrade/cryptotrade/internal/escrow"
)

func registerOfferRoutes(router fiber.Router, h *escrow.Handler) {
	group := router.Group("/offers")
	group.Post("/", h.Create)
	group.Get("/", h.List)
	group.Get("/mine", h.Mine)
	group.Post("/:offerId/accept", h.Accept)
	group.Post("/:offerId/cancel", h.Cancel)
}
