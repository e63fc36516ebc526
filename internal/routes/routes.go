package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nirv-ico/onboarding/internal/config"
	"github.com/nirv-ico/onboarding/internal/flow"
	"github.com/nirv-ico/onboarding/internal/journal"
	"github.com/nirv-ico/onboarding/internal/metrics"
	"github.com/nirv-ico/onboarding/internal/middleware"
	"github.com/nirv-ico/onboarding/internal/session"
	"github.com/nirv-ico/onboarding/internal/web"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	API     flow.API
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes. It returns the
// step handler so the caller can run its idle journey sweeper.
func Setup(ctx context.Context, app *fiber.App, d Deps) (*web.Handler, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.API == nil {
		return nil, fmt.Errorf("onboarding api client is required")
	}

	router, err := flow.NewRouter(flow.DefaultRoutes())
	if err != nil {
		return nil, err
	}

	var sessions session.Store
	if d.Cache != nil {
		sessions = session.NewRedisStore(d.Cache, d.Cfg.SessionTTL)
	} else {
		sessions = session.NewMemoryStore()
	}

	var events journal.Repository
	if d.DB != nil {
		pg := journal.NewPostgresRepository(d.DB)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		events = pg
	} else {
		events = journal.NewMemoryRepository()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app, d.Metrics)

	steps := app.Group("", middleware.BrowserSession(middleware.SessionCookie{
		Name:   d.Cfg.SessionCookie,
		MaxAge: d.Cfg.CookieMaxAge,
		Secure: !d.Cfg.IsDev(),
	}))

	handler := web.NewHandler(web.Deps{
		Router:         router,
		API:            d.API,
		Sessions:       sessions,
		Sealer:         session.NewSealer(d.Cfg.SessionSecret),
		Journal:        journal.NewService(events, d.Logger),
		Metrics:        d.Metrics,
		Logger:         d.Logger,
		IdleTTL:        d.Cfg.JourneyIdleTTL,
		MaxUploadBytes: d.Cfg.MaxUploadBytes,
	})
	handler.Register(steps, web.Guards{
		OTPAttempts: middleware.AttemptLimit(d.Cache, "otp", d.Cfg.OTPAttempts, d.Logger),
		Idempotent:  middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	})

	return handler, nil
}
