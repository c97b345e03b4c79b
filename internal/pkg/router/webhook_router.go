package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/mavuno/mavuno-api/app/controllers"
	"github.com/mavuno/mavuno-api/internal/pkg/config"
	"github.com/mavuno/mavuno-api/internal/pkg/middleware"
)

// Dependencies are the collaborators the handlers are built from.
type Dependencies struct {
	ServiceName string
	Intake      controllers.OrderIntaker
	Verifier    controllers.SignatureVerifier
	Payments    controllers.PaymentEventHandler
	SenderAuth  middleware.SenderAuthConfig

	// RateLimitMax caps requests per IP and minute on the webhook routes;
	// zero disables the limiter.
	RateLimitMax int
	// Cache, when enabled, backs the limiter so that replicas share counters.
	Cache config.CacheConfig
}

// WebhookRouter serves the two inbound webhooks.
type WebhookRouter struct {
	deps    Dependencies
	orders  *controllers.OrderController
	payment *controllers.WaveWebhookController
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	var handlers []fiber.Handler
	if h.deps.RateLimitMax > 0 {
		handlers = append(handlers, newLimiter(h.deps.RateLimitMax, h.deps.Cache))
	}

	orderHandlers := append(append([]fiber.Handler{}, handlers...),
		middleware.SenderAuthMiddleware(h.deps.SenderAuth),
		h.orders.HandleOrderAccepted,
	)
	app.Post("/orders/accepted", orderHandlers...)

	webhookHandlers := append(append([]fiber.Handler{}, handlers...), h.payment.HandleWaveWebhook)
	app.Post("/webhooks/wave", webhookHandlers...)
}

func NewWebhookRouter(deps Dependencies) *WebhookRouter {
	return &WebhookRouter{
		deps:    deps,
		orders:  controllers.NewOrderController(deps.Intake),
		payment: controllers.NewWaveWebhookController(deps.Verifier, deps.Payments),
	}
}

func newLimiter(limit int, cache config.CacheConfig) fiber.Handler {
	cfg := limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}

	if cache.Enabled() {
		port, err := strconv.Atoi(cache.Port)
		if err != nil {
			log.Warnf("[Router] Invalid CACHE_PORT %q, using in-memory rate limiter", cache.Port)
			return limiter.New(cfg)
		}
		// Database 2 keeps limiter counters apart from the idempotency keys.
		cfg.Storage = redisstorage.New(redisstorage.Config{
			Host:     cache.Host,
			Port:     port,
			Password: cache.Password,
			Database: 2,
			Reset:    false,
		})
	}
	return limiter.New(cfg)
}
