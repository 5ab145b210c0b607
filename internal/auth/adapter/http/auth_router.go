package http

import (
	"projectgoat/internal/auth/usecase"
	"projectgoat/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	usecase usecase.AuthUsecaseInterface
	log     logger.Logger
}

// NewAuthHTTPHandler creates a new authentication HTTP handler
func NewAuthHTTPHandler(uc usecase.AuthUsecaseInterface, log logger.Logger) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		usecase: uc,
		log:     log.WithComponent("auth_http"),
	}
}

// SetupAuthRoutes registers the authentication surface under the given
// router (typically the /api group).
func (h *AuthHTTPHandler) SetupAuthRoutes(router fiber.Router, middleware *AuthMiddleware) {
	router.Get("/health", h.Health)

	auth := router.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Post("/register", h.Register)
	auth.Post("/logout", h.Logout)
	auth.Get("/session", h.CheckSession)
	auth.Post("/change-password", middleware.RequireSession(), h.ChangePassword)

	users := router.Group("/users", middleware.RequireSession())
	users.Get("/me", h.GetCurrentUser)
	users.Put("/me", h.UpdateCurrentUser)
}

// Health is the unauthenticated liveness probe
func (h *AuthHTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Login authenticates credentials and creates a session
func (h *AuthHTTPHandler) Login(c *fiber.Ctx) error {
	var req usecase.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.IPAddress = c.IP()
	req.UserAgent = c.Get(fiber.HeaderUserAgent)

	result, err := h.usecase.Login(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// Register creates a new account and logs it in
func (h *AuthHTTPHandler) Register(c *fiber.Ctx) error {
	var req usecase.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.IPAddress = c.IP()
	req.UserAgent = c.Get(fiber.HeaderUserAgent)

	result, err := h.usecase.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// Logout invalidates the session named in the body or header
func (h *AuthHTTPHandler) Logout(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.Get(HeaderSessionID)
	}

	if err := h.usecase.Logout(c.UserContext(), sessionID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CheckSession reports whether a session is live. It never fails: an
// unknown or expired session simply comes back unauthenticated.
func (h *AuthHTTPHandler) CheckSession(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = c.Get(HeaderSessionID)
	}

	user, authenticated := h.usecase.CheckSession(c.UserContext(), sessionID)
	return c.JSON(fiber.Map{
		"user":          user,
		"authenticated": authenticated,
	})
}

// ChangePassword rotates the password of the authenticated user,
// invalidating every other session and rotating the CSRF token of this one.
func (h *AuthHTTPHandler) ChangePassword(c *fiber.Ctx) error {
	sessionID, ok := GetSessionID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	csrfToken, err := h.usecase.ChangePassword(c.UserContext(), sessionID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "password changed successfully",
		"csrfToken": csrfToken,
	})
}

// GetCurrentUser returns the authenticated user's profile
func (h *AuthHTTPHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, ok := GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	user, err := h.usecase.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateCurrentUser updates the authenticated user's profile fields
func (h *AuthHTTPHandler) UpdateCurrentUser(c *fiber.Ctx) error {
	userID, ok := GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var upd usecase.ProfileUpdate
	if err := c.BodyParser(&upd); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	user, err := h.usecase.UpdateProfile(c.UserContext(), userID, upd)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
