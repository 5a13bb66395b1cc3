package handlers

import (
	"instanteats-auth/internal/config"
	"instanteats-auth/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	shards map[string]*gorm.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(shards map[string]*gorm.DB) *HealthHandler {
	return &HealthHandler{shards: shards}
}

// Check reports service and shard health
// @Summary Health check
// @Tags Health
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := config.HealthCheck(h.shards); err != nil {
		return response.ServiceUnavailable(c, "Database unavailable")
	}

	return response.Success(c, "OK", fiber.Map{
		"service": "auth-service",
		"shards":  len(h.shards),
	})
}
