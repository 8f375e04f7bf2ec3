// Package api serves the places dataset over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"telegram-places-bot/apperror"
	"telegram-places-bot/config"
)

// Server is the Fiber HTTP server
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	handler *Handler
}

// NewServer creates the server and registers its routes
func NewServer(cfg *config.Config, handler *Handler, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Addis Places API",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          customErrorHandler(logger),
		DisableStartupMessage: true,
	})

	s := &Server{
		app:     app,
		config:  cfg,
		logger:  logger,
		handler: handler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(Recovery())
	s.app.Use(RequestLogger(s.logger))
	s.app.Use(CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handler.Health)

	api := s.app.Group("/api/v1")
	api.Get("/categories", s.handler.Categories)
	api.Get("/places", s.handler.Places)
	api.Get("/hubs", s.handler.Hubs)
}

// Start blocks serving HTTP until Shutdown is called
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler renders errors that escape a handler, mostly routing errors from Fiber itself.
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := apperror.From(err)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch fe.Code {
			case fiber.StatusNotFound:
				appErr = apperror.ErrNotFound
			default:
				appErr = apperror.New("HTTP_ERROR", fe.Message, fe.Code)
			}
		}

		if appErr.StatusCode >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("path", c.Path()),
				zap.Int("status", appErr.StatusCode),
				zap.Error(err),
			)
		}

		return c.Status(appErr.StatusCode).JSON(ErrorResponse{Error: appErr})
	}
}
