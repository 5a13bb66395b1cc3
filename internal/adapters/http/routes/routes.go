package routes

import (
	"instanteats-auth/internal/adapters/http/handlers"
	"instanteats-auth/internal/adapters/http/middleware"
	"instanteats-auth/internal/adapters/persistence/repositories"
	"instanteats-auth/internal/config"
	"instanteats-auth/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers onto the app
func Setup(app *fiber.App, shards map[string]*gorm.DB, cfg *config.Config) *services.MaintenanceService {
	// Partition resolver + repositories
	resolver := repositories.NewPartitionResolver(cfg.Shards, shards)
	userRepo := repositories.NewUserRepository(resolver)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(resolver)
	loginHistoryRepo := repositories.NewLoginHistoryRepository(resolver)

	// Services
	loginGuard := services.NewLoginGuard(userRepo, loginHistoryRepo)
	tokenService := services.NewTokenService(cfg.JWT)
	tokenLedger := services.NewRefreshTokenLedger(userRepo, refreshTokenRepo)
	authService := services.NewAuthService(userRepo, loginGuard, tokenService, tokenLedger)
	sessionService := services.NewSessionService(refreshTokenRepo, loginHistoryRepo)

	// One representative region per shard for maintenance sweeps
	shardRegions := make([]string, 0, len(cfg.Shards))
	for _, spec := range cfg.Shards {
		if len(spec.Regions) > 0 {
			shardRegions = append(shardRegions, spec.Regions[0])
		}
	}
	maintenanceService := services.NewMaintenanceService(loginHistoryRepo, shardRegions, cfg.Audit.RetentionDays)

	// Handlers
	healthHandler := handlers.NewHealthHandler(shards)
	authHandler := handlers.NewAuthHandler(authService, cfg)
	sessionHandler := handlers.NewSessionHandler(sessionService)

	requireAuth := middleware.AuthMiddleware(tokenService)
	authLimiter := middleware.AuthRateLimiter()

	// Routes
	app.Get("/health", healthHandler.Check)

	api := app.Group("/api/v1")
	auth := api.Group("/auth")

	auth.Post("/register", authLimiter, authHandler.Register)
	auth.Post("/login", authLimiter, authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", requireAuth, authHandler.Logout)
	auth.Post("/logout-all", requireAuth, authHandler.LogoutAll)
	auth.Get("/me", requireAuth, authHandler.Me)

	auth.Get("/sessions", requireAuth, sessionHandler.List)
	auth.Delete("/sessions/:sessionId", requireAuth, sessionHandler.Revoke)
	auth.Get("/login-history", requireAuth, sessionHandler.LoginHistory)

	admin := auth.Group("/admin", requireAuth, middleware.AdminOnly())
	admin.Post("/users/:userId/logout-all", authHandler.ForceLogout)

	return maintenanceService
}
