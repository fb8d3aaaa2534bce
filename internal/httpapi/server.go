// Package httpapi exposes the single-pair match service over HTTP.
package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/match"
)

// Server wires the match service into a fiber app.
type Server struct {
	app *fiber.App
	svc *match.Service
	log *zap.Logger
}

// New builds the app with request-id, access-log and error handling around
// the match route.
func New(svc *match.Service, log *zap.Logger) *Server {
	s := &Server{
		svc: svc,
		log: logger.WithStage(log, "http", ""),
	}
	s.app = fiber.New(fiber.Config{
		ErrorHandler: s.handleError,
	})

	s.app.Use(s.requestLog)
	s.app.Get("/healthz", handleHealth)
	s.app.Get("/api/v1/match/:jd_id/:user_id", s.handleMatch)

	return s
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) requestLog(c fiber.Ctx) error {
	requestID := uuid.NewString()
	c.Set("X-Request-ID", requestID)

	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if ferr := new(fiber.Error); errors.As(err, &ferr) {
		status = ferr.Code
	}
	s.log.Info("request",
		zap.String("request_id", requestID),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}

func (s *Server) handleMatch(c fiber.Ctx) error {
	userID := c.Params("user_id")
	jdID := c.Params("jd_id")

	result, err := s.svc.Match(userID, jdID)
	if err != nil {
		var notFound *match.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":       notFound.Kind + " not found",
				"id":          notFound.ID,
				"suggestions": notFound.Suggestions,
			})
		}
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if ferr := new(fiber.Error); errors.As(err, &ferr) {
		code = ferr.Code
	} else {
		s.log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
