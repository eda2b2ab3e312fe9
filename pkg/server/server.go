// Package server exposes the analyzer over HTTP.
package server

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phishguard/phishguard/pkg/analyzer"
)

const requestIDHeader = "X-Request-ID"

// Server wraps the fiber app with its collaborators.
type Server struct {
	app     *fiber.App
	an      *analyzer.Analyzer
	log     zerolog.Logger
	version string
}

// New builds the HTTP server and registers all routes.
func New(an *analyzer.Analyzer, log zerolog.Logger, version string) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName: "phishguard",
		}),
		an:      an,
		log:     log,
		version: version,
	}

	s.app.Use(s.requestLogger)

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/rules", s.handleRules)
	s.app.Post("/analyze", s.handleAnalyze)

	return s
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error { return s.app.Shutdown() }

// requestLogger tags every request with an id and logs its outcome.
func (s *Server) requestLogger(c fiber.Ctx) error {
	reqID := c.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	c.Set(requestIDHeader, reqID)

	start := time.Now()
	err := c.Next()

	s.log.Info().
		Str("request_id", reqID).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("request")

	return err
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": s.version})
}

func (s *Server) handleRules(c fiber.Ctx) error {
	return c.JSON(s.an.Rules())
}

func (s *Server) handleAnalyze(c fiber.Ctx) error {
	var req analyzer.Request
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	res, err := s.an.Analyze(c.Context(), &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}
