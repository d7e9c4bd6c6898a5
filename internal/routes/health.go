package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

func registerHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := fiber.Map{}

		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				checks["database"] = "down"
				status = http.StatusServiceUnavailable
			} else {
				checks["database"] = "up"
			}
		} else {
			checks["database"] = "memory"
		}

		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				checks["cache"] = "down"
				status = http.StatusServiceUnavailable
			} else {
				checks["cache"] = "up"
			}
		} else {
			checks["cache"] = "memory"
		}

		return c.Status(status).JSON(fiber.Map{
			"app":    d.Cfg.AppName,
			"env":    d.Cfg.AppEnv,
			"checks": checks,
		})
	})
}
