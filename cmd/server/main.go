package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"instanteats-auth/internal/adapters/http/middleware"
	"instanteats-auth/internal/adapters/http/routes"
	"instanteats-auth/internal/adapters/persistence/models"
	"instanteats-auth/internal/config"
	"instanteats-auth/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// A role without a policy is a configuration defect; refuse to start
	if err := domain.ValidatePolicies(); err != nil {
		log.Fatalf("❌ Invalid role policy configuration: %v", err)
	}

	// Connect region shards
	shards, err := config.ConnectShards(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect shards: %v", err)
	}
	defer config.CloseShards(shards)

	// Auto migrate every shard
	for id, db := range shards {
		if err := models.AutoMigrate(db); err != nil {
			log.Fatalf("❌ Failed to migrate shard %s: %v", id, err)
		}
	}
	log.Println("✅ Database migration completed")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "InstantEats Auth Service",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes; returns the maintenance scheduler
	maintenanceService := routes.Setup(app, shards, cfg)
	maintenanceService.Start()
	defer maintenanceService.Stop()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Auth service starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
