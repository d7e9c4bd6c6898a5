package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptotrade/cryptotrade/internal/config"
)

// Server wraps the Fiber application and its listen address.
type Server struct {
	app  *fiber.App
	addr string
}

// New constructs the HTTP server with application-wide Fiber settings.
func New(cfg config.Config) *Server {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: !cfg.IsDev(),
	})

	return &Server{app: app, addr: cfg.Address()}
}

// App exposes the underlying Fiber application for route registration.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP until the listener fails or shuts down.
func (s *Server) Listen() error {
	return s.app.Listen(s.addr)
}

// Shutdown gracefully drains in-flight requests, waiting at most timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}
