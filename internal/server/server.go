// Package server exposes the mapping service over HTTP.
package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/oakvale/ledgermap/internal/mapper"
	"github.com/oakvale/ledgermap/internal/reference"
	"github.com/oakvale/ledgermap/internal/storage"
)

// Version reported by the root and health endpoints.
const Version = "1.0.0"

// Config holds server configuration.
type Config struct {
	Addr             string
	AllowOrigins     string
	APIKeyConfigured bool
}

// Server wires the HTTP surface to the mapper, session store, and
// reference data.
type Server struct {
	app    *fiber.App
	store  storage.SessionStore
	mapper *mapper.Mapper
	ref    *reference.Reference
	logger *slog.Logger
	cfg    Config
}

// New creates the HTTP server and registers its routes.
func New(cfg Config, store storage.SessionStore, m *mapper.Mapper, ref *reference.Reference, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "http://localhost:3000,http://localhost:5173"
	}

	app := fiber.New(fiber.Config{
		AppName:   "ledgermap",
		BodyLimit: 32 << 20,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowCredentials: true,
	}))

	s := &Server{
		app:    app,
		store:  store,
		mapper: m,
		ref:    ref,
		logger: logger,
		cfg:    cfg,
	}

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	app.Post("/upload-accounts", s.handleUpload)
	app.Post("/map-accounts", s.handleMapAccounts)
	app.Get("/mapping-status/:session_id", s.handleMappingStatus)
	app.Post("/chat", s.handleChat)
	app.Post("/feedback", s.handleFeedback)
	app.Post("/run-evaluation", s.handleEvaluation)

	return s
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// apiError mirrors the {"detail": ...} error body the frontend expects.
func apiError(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}
