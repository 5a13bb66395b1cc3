package handlers

import (
	"errors"
	"strings"
	"time"

	"instanteats-auth/internal/config"
	"instanteats-auth/internal/core/domain"
	"instanteats-auth/internal/core/services"
	"instanteats-auth/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Region     string `json:"region"`
	DeviceName string `json:"device_name"`
}

// RegisterRequest represents customer registration request body
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Region    string `json:"region"`
}

// RefreshRequest represents refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Region       string `json:"region"`
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user and open one device session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 423 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.Region == "" {
		return response.BadRequest(c, "Email, password, and region are required")
	}

	input := &services.LoginInput{
		Email:      strings.TrimSpace(strings.ToLower(req.Email)),
		Password:   req.Password,
		Region:     strings.TrimSpace(req.Region),
		DeviceName: strings.TrimSpace(req.DeviceName),
	}
	device := services.DeviceInfo{
		DeviceName: input.DeviceName,
		UserAgent:  c.Get("User-Agent"),
		IPAddress:  c.IP(),
	}

	result, err := h.authService.Login(c.Context(), input, device)
	if err != nil {
		return h.loginError(c, err)
	}

	h.setRefreshCookie(c, result.RefreshSecret, domain.Role(result.User.Role))

	return response.Success(c, "Login successful", fiber.Map{
		"user":           result.User,
		"access_token":   result.AccessToken,
		"expires_in":     result.ExpiresIn,
		"refresh_secret": result.RefreshSecret,
	})
}

// loginError maps a login failure to its HTTP status. Unknown email and wrong
// password share one message so the API never confirms an email exists.
func (h *AuthHandler) loginError(c *fiber.Ctx, err error) error {
	var locked *domain.LockedError
	if errors.As(err, &locked) {
		return response.Locked(c, "Account temporarily locked due to multiple failed login attempts", fiber.Map{
			"locked_until":      locked.LockedUntil,
			"minutes_remaining": locked.MinutesRemaining,
		})
	}

	var creds *domain.CredentialsError
	if errors.As(err, &creds) {
		return response.ErrorWithData(c, fiber.StatusUnauthorized, "Invalid credentials", fiber.Map{
			"attempts_remaining": creds.AttemptsRemaining,
		})
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid credentials")
	case errors.Is(err, domain.ErrAccountSuspended):
		return response.Forbidden(c, "Account suspended. Please contact support.")
	case errors.Is(err, domain.ErrAccountPending):
		return response.Forbidden(c, "Account pending verification. You will be notified once approved.")
	case errors.Is(err, domain.ErrStoreUnavailable):
		return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
	default:
		return response.InternalServerError(c, "Failed to login")
	}
}

// Register handles customer registration
// @Summary Register customer
// @Description Create a customer account and log it in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.Region == "" {
		return response.BadRequest(c, "Email, password, and region are required")
	}
	if len(req.Password) < 8 {
		return response.BadRequest(c, "Password must be at least 8 characters")
	}

	input := &services.RegisterInput{
		Email:     strings.TrimSpace(strings.ToLower(req.Email)),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Region:    strings.TrimSpace(req.Region),
	}
	device := services.DeviceInfo{
		UserAgent: c.Get("User-Agent"),
		IPAddress: c.IP(),
	}

	result, err := h.authService.Register(c.Context(), input, device)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			return response.Conflict(c, "Email already registered")
		case errors.Is(err, domain.ErrStoreUnavailable):
			return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
		default:
			return response.InternalServerError(c, "Failed to register user")
		}
	}

	h.setRefreshCookie(c, result.RefreshSecret, domain.Role(result.User.Role))

	return response.Created(c, "Registration successful", fiber.Map{
		"user":           result.User,
		"access_token":   result.AccessToken,
		"expires_in":     result.ExpiresIn,
		"refresh_secret": result.RefreshSecret,
	})
}

// Refresh handles access token refresh
// @Summary Refresh access token
// @Description Exchange a refresh secret for a new access token
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	_ = c.BodyParser(&req)

	secret := req.RefreshToken
	if secret == "" {
		secret = c.Cookies("refresh_token")
	}
	if secret == "" || req.Region == "" {
		return response.BadRequest(c, "Refresh token and region are required")
	}

	accessToken, expiresIn, err := h.authService.Refresh(c.Context(), secret, strings.TrimSpace(req.Region))
	if err != nil {
		switch {
		// Not-found, revoked and expired collapse into one message so the
		// caller cannot probe which it was
		case errors.Is(err, domain.ErrTokenNotFound),
			errors.Is(err, domain.ErrTokenRevoked),
			errors.Is(err, domain.ErrTokenExpired),
			errors.Is(err, domain.ErrUserNotFound):
			h.clearRefreshCookie(c)
			return response.Unauthorized(c, "Invalid or expired refresh token")
		case errors.Is(err, domain.ErrStoreUnavailable):
			return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
		default:
			return response.InternalServerError(c, "Failed to refresh token")
		}
	}

	return response.Success(c, "Token refreshed successfully", fiber.Map{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// Logout handles logout from the current device
// @Summary Logout user
// @Description Revoke the session behind one refresh secret
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	region, _ := c.Locals("region").(string)

	var req RefreshRequest
	_ = c.BodyParser(&req)

	secret := req.RefreshToken
	if secret == "" {
		secret = c.Cookies("refresh_token")
	}
	if secret != "" {
		if err := h.authService.Logout(c.Context(), secret, region); err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
			}
			return response.InternalServerError(c, "Failed to logout")
		}
	}

	h.clearRefreshCookie(c)
	return response.Success(c, "Logged out successfully", nil)
}

// LogoutAll handles logout from all devices
// @Summary Logout from all devices
// @Description Revoke every session for the calling user
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		return response.Unauthorized(c, "Unauthorized")
	}
	region, _ := c.Locals("region").(string)

	if err := h.authService.LogoutAll(c.Context(), userID, region); err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
		}
		return response.InternalServerError(c, "Failed to logout from all devices")
	}

	h.clearRefreshCookie(c)
	return response.Success(c, "Logged out from all devices", nil)
}

// Me returns the current user info
// @Summary Get current user
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		return response.Unauthorized(c, "Unauthorized")
	}
	region, _ := c.Locals("region").(string)

	user, err := h.authService.GetUserByID(c.Context(), userID, region)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
		}
		return response.NotFound(c, "User not found")
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// ForceLogout revokes every session for another user (support/abuse handling)
// @Summary Force logout a user
// @Description Revoke every session for the given user (admin only)
// @Tags Auth
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param region query string true "User's region"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /auth/admin/users/{userId}/logout-all [post]
func (h *AuthHandler) ForceLogout(c *fiber.Ctx) error {
	userID := c.Params("userId")
	region := strings.TrimSpace(c.Query("region"))
	if region == "" {
		return response.BadRequest(c, "Region is required")
	}

	if err := h.authService.LogoutAll(c.Context(), userID, region); err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return response.ServiceUnavailable(c, "Service temporarily unavailable, please retry")
		}
		return response.InternalServerError(c, "Failed to revoke user sessions")
	}

	return response.Success(c, "All sessions revoked for user", nil)
}

// setRefreshCookie sets the refresh secret as an HTTP-only, same-site-strict
// cookie scoped to the auth path, living as long as the role's refresh TTL.
func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, secret string, role domain.Role) {
	policy, err := domain.PolicyFor(role)
	if err != nil {
		return
	}

	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    secret,
		Path:     h.cfg.Cookie.Path,
		MaxAge:   int(policy.RefreshTokenTTL.Seconds()),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// clearRefreshCookie clears the refresh cookie
func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     h.cfg.Cookie.Path,
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Domain:   h.cfg.Cookie.Domain,
	})
}
