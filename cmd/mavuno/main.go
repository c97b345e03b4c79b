package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mavuno/mavuno-api/app/controllers"
	"github.com/mavuno/mavuno-api/internal/pkg/cache"
	"github.com/mavuno/mavuno-api/internal/pkg/config"
	"github.com/mavuno/mavuno-api/internal/pkg/database"
	"github.com/mavuno/mavuno-api/internal/pkg/env"
	"github.com/mavuno/mavuno-api/internal/pkg/idempotency"
	"github.com/mavuno/mavuno-api/internal/pkg/middleware"
	"github.com/mavuno/mavuno-api/internal/pkg/notify"
	"github.com/mavuno/mavuno-api/internal/pkg/orders"
	"github.com/mavuno/mavuno-api/internal/pkg/payments"
	"github.com/mavuno/mavuno-api/internal/pkg/router"
	"github.com/mavuno/mavuno-api/internal/pkg/wave"
)

const shutdownTimeout = 10 * time.Second

// Application owns the HTTP server and the connections it was built with.
type Application struct {
	App   *fiber.App
	DB    *gorm.DB
	Cache *redis.Client
}

func main() {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	application, err := NewApplication(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := application.App.Listen(cfg.ListenAddr()); err != nil {
			log.Fatalf("[Server] Listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Server] Shutting down")
	if err := application.Shutdown(); err != nil {
		log.Errorf("[Server] Shutdown: %v", err)
	}
}

func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	a := &Application{}

	if cfg.Cache.Enabled() {
		rdb, err := cache.NewClient(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
		a.Cache = rdb
	}

	if cfg.NeedsDatabase() {
		db, err := database.Open(cfg.Database)
		if err != nil {
			_ = a.Shutdown()
			return nil, err
		}
		a.DB = db
	}

	guard, err := idempotency.New(cfg.IdempotencyBackend, a.Cache, a.DB, cfg.IdempotencyTTL)
	if err != nil {
		_ = a.Shutdown()
		return nil, err
	}

	var sender notify.Sender
	if cfg.Twilio.Enabled() {
		sender = notify.NewTwilioSender(cfg.Twilio)
	} else {
		log.Warn("[Notify] Twilio credentials missing, SMS notifications are disabled")
	}
	dispatcher := notify.NewDispatcher(sender, cfg.Twilio.FromNumber)

	var ledger payments.Repository
	if cfg.LedgerEnabled {
		ledger = payments.NewRepository(a.DB)
	}

	waveClient := wave.NewClient(cfg.Wave.APIKey, cfg.Wave.BaseURL, cfg.Wave.HTTPTimeout)
	verifier := wave.NewVerifier(cfg.Wave.WebhookSecret, cfg.Wave.WebhookTolerance, cfg.Wave.SignatureEncoding)

	intake := orders.NewService(waveClient, dispatcher, orders.Options{
		Currency:   cfg.Wave.Currency,
		SuccessURL: cfg.Wave.SuccessURL,
		ErrorURL:   cfg.Wave.ErrorURL,
	})
	paymentSvc := payments.NewService(guard, dispatcher, ledger, cfg.OwnerPhone)

	app := fiber.New(fiber.Config{
		AppName:      cfg.ServiceName,
		ErrorHandler: controllers.ErrorHandler,
		BodyLimit:    1 << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New(), requestid.New(requestid.Config{Generator: uuid.NewString}), logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	// fiber metrics
	app.Get("/metrics", monitor.New(monitor.Config{Title: cfg.ServiceName + " metrics"}))

	// SWAGGER / OPENAPI
	if specPath, ok := findOpenAPISpec(); ok {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
			Title:    cfg.ServiceName,
		}))
	} else {
		log.Warn("[Server] OpenAPI document not found, /docs/api/v1 is disabled")
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		ServiceName: cfg.ServiceName,
		Intake:      intake,
		Verifier:    verifier,
		Payments:    paymentSvc,
		SenderAuth: middleware.SenderAuthConfig{
			Secret:    cfg.OrderWebhookSecret,
			UserAgent: cfg.OrderWebhookUserAgent,
		},
		RateLimitMax: cfg.RateLimitMax,
		Cache:        cfg.Cache,
	})

	a.App = app
	log.Infof("[Server] %s configured (idempotency=%s ledger=%t sms=%t)",
		cfg.ServiceName, cfg.IdempotencyBackend, cfg.LedgerEnabled, dispatcher.Enabled())
	return a, nil
}

// Shutdown stops the server and closes the cache and database handles.
func (a *Application) Shutdown() error {
	var errs []error
	if a.App != nil {
		if err := a.App.ShutdownWithTimeout(shutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("server: %w", err))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if err := database.Close(a.DB); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}

// findOpenAPISpec looks for the document relative to the repository root,
// which differs between `go run ./cmd/mavuno` and tests.
func findOpenAPISpec() (string, bool) {
	for _, base := range []string{"./", "../../"} {
		path := base + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
