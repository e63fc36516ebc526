package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nirv-ico/onboarding/internal/config"
	"github.com/nirv-ico/onboarding/internal/flow"
	"github.com/nirv-ico/onboarding/internal/metrics"
	"github.com/nirv-ico/onboarding/internal/routes"
	"github.com/nirv-ico/onboarding/internal/web"
)

// multipart framing on top of the document itself
const uploadOverhead = 64 << 10

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app     *fiber.App
	cfg     config.Config
	handler *web.Handler
	logger  *slog.Logger

	// background work (the idle journey sweeper) lives until Shutdown
	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, api flow.API, m *metrics.Metrics, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          cfg.APITimeout + 30*time.Second,
		BodyLimit:             cfg.MaxUploadBytes + uploadOverhead,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	handler, err := routes.Setup(ctx, app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, API: api, Metrics: m, Logger: logger})
	if err != nil {
		return nil, err
	}

	bg, cancel := context.WithCancel(context.Background())
	return &Server{app: app, cfg: cfg, handler: handler, logger: logger, ctx: bg, cancel: cancel}, nil
}

// errorHandler renders errors as {"error": message}. Unexpected errors are
// logged and hidden behind a generic message.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error("unhandled request error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

// Listen starts the idle journey sweeper and the HTTP server on the
// configured address.
func (s *Server) Listen() error {
	s.startBackground()
	s.logger.Info("listening", slog.String("addr", s.cfg.Address()), slog.String("env", s.cfg.AppEnv))
	return s.app.Listen(s.cfg.Address())
}

// Serve is Listen on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.startBackground()
	s.logger.Info("listening", slog.String("addr", ln.Addr().String()), slog.String("env", s.cfg.AppEnv))
	return s.app.Listener(ln)
}

func (s *Server) startBackground() {
	s.startOnce.Do(func() {
		go s.handler.Run(s.ctx)
	})
}

// Shutdown stops the sweeper and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.app.ShutdownWithContext(ctx)
}
