package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Service is the part of rag.RAG the HTTP layer needs.
type Service interface {
	Upload(ctx context.Context, filename string, data []byte) (*models.UploadResult, error)
	Query(ctx context.Context, query string) (*models.Answer, error)
	OpenPDF(filename string) ([]byte, error)
}

type Server struct {
	app *fiber.App
	cfg *config.ServerConfig
}

func New(cfg *config.ServerConfig, svc Service) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.BodyLimitMB * 1024 * 1024,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(requestLogger())

	h := &handler{svc: svc}
	app.Get("/healthz", h.health)
	app.Post("/upload", h.upload)
	app.Get("/query", h.query)
	app.Get("/pdf/:filename", h.pdf)

	return &Server{app: app, cfg: cfg}
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Info().Str("address", s.cfg.Address).Str("base_url", s.cfg.BaseURL).Msg("Server is running")
	return s.app.Listen(s.cfg.Address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// apiError carries the status and client-facing body for a failed request.
// The wrapped cause is logged, never sent.
type apiError struct {
	status int
	body   fiber.Map
	cause  error
}

func (e *apiError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("http %d: %v", e.status, e.body)
	}
	return e.cause.Error()
}

func (e *apiError) Unwrap() error { return e.cause }

func badRequest(detail string) *apiError {
	return &apiError{status: fiber.StatusBadRequest, body: fiber.Map{"detail": detail}}
}

// fail maps a service error to a response. detail is used for anything
// that is not the caller's fault.
func fail(err error, detail string) *apiError {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return &apiError{status: fiber.StatusBadRequest, body: fiber.Map{"detail": err.Error()}, cause: err}
	case errors.Is(err, models.ErrFileNotFound):
		return &apiError{status: fiber.StatusNotFound, body: fiber.Map{"error": "File not found"}, cause: err}
	default:
		return &apiError{status: fiber.StatusInternalServerError, body: fiber.Map{"detail": detail}, cause: err}
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	var apiErr *apiError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &fiberErr):
		apiErr = &apiError{status: fiberErr.Code, body: fiber.Map{"detail": fiberErr.Message}}
	default:
		apiErr = fail(err, "Internal server error")
	}

	if apiErr.status >= fiber.StatusInternalServerError {
		log.Error().Err(apiErr.cause).
			Str("request_id", requestID(c)).
			Str("path", c.Path()).
			Msg("Request failed")
	}
	return c.Status(apiErr.status).JSON(apiErr.body)
}
