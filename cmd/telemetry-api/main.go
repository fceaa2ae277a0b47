package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/sensor-telemetry/internal/api/http"
	"github.com/i474232898/sensor-telemetry/internal/config"
	"github.com/i474232898/sensor-telemetry/internal/store"
	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// One store (and pool) for the whole process, closed on shutdown.
	backend, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Printf("error closing store: %v", err)
		}
	}()

	if err := prepareStore(backend, cfg); err != nil {
		log.Printf("failed to prepare store: %v", err)
		return
	}

	service := telemetry.NewService(backend, cfg.DefaultSensorID)

	app := fiber.New(fiber.Config{
		AppName:               "sensor-telemetry",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	// Dashboard assets.
	if info, err := os.Stat(cfg.PublicDir); err == nil && info.IsDir() {
		app.Static("/", cfg.PublicDir)
	} else {
		log.Printf("INFO: static directory %q not found; serving API only", cfg.PublicDir)
	}

	go func() {
		log.Printf("Server is running on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// prepareStore checks connectivity and, when enabled, creates the schema and
// registers the seed sensors.
func prepareStore(backend store.Backend, cfg *config.AppConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := backend.Ping(ctx); err != nil {
		return err
	}
	if !cfg.AutoMigrate {
		return nil
	}
	if err := backend.Migrate(ctx); err != nil {
		return err
	}
	for _, sensor := range cfg.SeedSensors {
		if err := backend.EnsureSensor(ctx, sensor); err != nil {
			return err
		}
	}
	if len(cfg.SeedSensors) > 0 {
		log.Printf("INFO: %d seed sensors registered", len(cfg.SeedSensors))
	}
	return nil
}
