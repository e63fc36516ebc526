package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/nirv-ico/onboarding/internal/metrics"
)

// RegisterMetricsRoute exposes Prometheus metrics. Nothing is mounted when m is nil.
func RegisterMetricsRoute(app *fiber.App, m *metrics.Metrics) {
	if m == nil {
		return
	}
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
}
