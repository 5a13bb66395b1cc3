package handlers

import (
	"errors"

	"instanteats-auth/internal/core/domain"
	"instanteats-auth/internal/core/services"
	"instanteats-auth/internal/pkg/pagination"
	"instanteats-auth/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SessionHandler handles session listing and revocation endpoints
type SessionHandler struct {
	sessionService *services.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// List returns the caller's active sessions
// @Summary List active sessions
// @Tags Sessions
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/sessions [get]
func (h *SessionHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		return response.Unauthorized(c, "Unauthorized")
	}
	region, _ := c.Locals("region").(string)

	sessions, err := h.sessionService.ListActive(c.Context(), userID, region)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
		}
		return response.InternalServerError(c, "Failed to fetch sessions")
	}

	return response.Success(c, "Sessions retrieved successfully", fiber.Map{
		"active_sessions": len(sessions),
		"sessions":        sessions,
	})
}

// Revoke revokes one of the caller's sessions by id
// @Summary Revoke a session
// @Tags Sessions
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/sessions/{sessionId} [delete]
func (h *SessionHandler) Revoke(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		return response.Unauthorized(c, "Unauthorized")
	}
	region, _ := c.Locals("region").(string)

	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.BadRequest(c, "Session ID is required")
	}

	if err := h.sessionService.RevokeByID(c.Context(), sessionID, userID, region); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			return response.NotFound(c, "Session not found")
		case errors.Is(err, domain.ErrStoreUnavailable):
			return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
		default:
			return response.InternalServerError(c, "Failed to revoke session")
		}
	}

	return response.Success(c, "Session revoked successfully", nil)
}

// LoginHistory returns the caller's login audit trail
// @Summary List login history
// @Tags Sessions
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /auth/login-history [get]
func (h *SessionHandler) LoginHistory(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		return response.Unauthorized(c, "Unauthorized")
	}
	region, _ := c.Locals("region").(string)

	params := pagination.GetParams(c)

	entries, total, err := h.sessionService.LoginHistory(c.Context(), userID, region, params.Offset, params.Limit)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
		}
		return response.InternalServerError(c, "Failed to fetch login history")
	}

	return response.Success(c, "Login history retrieved successfully", pagination.NewResponse(entries, params, total))
}
