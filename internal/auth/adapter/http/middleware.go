package http

import (
	"context"
	"crypto/subtle"

	"projectgoat/internal/auth/config"
	"projectgoat/internal/auth/usecase"
	"projectgoat/internal/shared/contextkeys"
	apperrors "projectgoat/internal/shared/errors"
	"projectgoat/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Header names shared with the browser client.
const (
	HeaderSessionID = "X-Session-ID"
	HeaderCSRFToken = "X-CSRF-Token"
)

// AuthMiddleware provides the session and CSRF middleware for Fiber
type AuthMiddleware struct {
	usecase usecase.AuthUsecaseInterface
	config  *config.Config
	log     logger.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(uc usecase.AuthUsecaseInterface, cfg *config.Config, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		usecase: uc,
		config:  cfg,
		log:     log.WithComponent("auth_middleware"),
	}
}

// CORS middleware configured for the browser client
func (m *AuthMiddleware) CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     m.config.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept," + HeaderSessionID + "," + HeaderCSRFToken,
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// SecurityHeaders adds security headers
func (m *AuthMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RequestID middleware
func (m *AuthMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// RequireSession enforces the session activity rules on protected routes.
// A valid session transitions the request to Active and records activity
// as a side effect; idle- and absolute-expired sessions are rejected 401
// with a machine-readable reason before any touch can revive them.
func (m *AuthMiddleware) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Get(HeaderSessionID)
		if sessionID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		session, err := m.usecase.AuthorizeRequest(c.UserContext(), sessionID)
		if err != nil {
			return respondError(c, err)
		}

		ctx := c.UserContext()
		ctx = context.WithValue(ctx, contextkeys.UserIDKey, session.UserID)
		ctx = context.WithValue(ctx, contextkeys.SessionIDKey, session.ID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// CSRFGuard validates the per-session CSRF token on state-changing
// requests. Safe methods and the exempt list (login, register, health)
// skip validation. A missing or invalid session is an authentication
// failure (401); a token mismatch on a live session is 403, so clients
// can tell "log in again" apart from "refresh token and retry".
func (m *AuthMiddleware) CSRFGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		if m.isExemptPath(c.Path()) {
			return c.Next()
		}

		sessionID := c.Get(HeaderSessionID)
		if sessionID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		session, err := m.usecase.ValidateSession(c.UserContext(), sessionID)
		if err != nil {
			return respondError(c, err)
		}

		token := c.Get(HeaderCSRFToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(session.CSRFToken)) != 1 {
			m.log.WithContext(c.UserContext()).Warnf("CSRF token mismatch for session %s on %s %s",
				session.ID, c.Method(), c.Path())
			return respondError(c, apperrors.NewCsrfMismatchError())
		}

		return c.Next()
	}
}

func (m *AuthMiddleware) isExemptPath(path string) bool {
	for _, exempt := range m.config.CSRFExemptPaths {
		if path == exempt {
			return true
		}
	}
	return false
}

// GetUserID helper function to get the authenticated user ID from context
func GetUserID(c *fiber.Ctx) (string, bool) {
	userID, ok := c.UserContext().Value(contextkeys.UserIDKey).(string)
	return userID, ok
}

// GetSessionID helper function to get the current session ID from context
func GetSessionID(c *fiber.Ctx) (string, bool) {
	sessionID, ok := c.UserContext().Value(contextkeys.SessionIDKey).(string)
	return sessionID, ok
}
