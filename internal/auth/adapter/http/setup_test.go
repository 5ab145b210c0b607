package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "projectgoat/internal/auth/adapter/http"
	"projectgoat/internal/auth/config"
	"projectgoat/internal/auth/testutil"
	"projectgoat/internal/auth/usecase"
	"projectgoat/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// authTestEnv wires the real usecase over the in-memory repository
// behind a Fiber app, with a controllable clock. Handler and middleware
// tests drive it through app.Test like a browser would.
type authTestEnv struct {
	app  *fiber.App
	repo *testutil.MemoryAuthRepository
	uc   *usecase.AuthUsecase
	now  time.Time
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	env := &authTestEnv{
		repo: testutil.NewMemoryAuthRepository(),
		now:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	cfg := &config.Config{
		IdleTimeout:          30 * time.Minute,
		AbsoluteTimeout:      8 * time.Hour,
		RateLimitWindow:      15 * time.Minute,
		RateLimitMaxFailures: 5,
		AttemptRetention:     30 * 24 * time.Hour,
		CSRFExemptPaths:      []string{"/api/auth/login", "/api/auth/register", "/api/health"},
		AllowedOrigins:       "http://localhost:3000",
	}

	log := logger.NewLogger()
	limiter := usecase.NewRateLimiter(env.repo, cfg.RateLimitWindow, cfg.RateLimitMaxFailures, cfg.AttemptRetention, log)
	env.uc = usecase.NewAuthUsecase(env.repo, limiter, cfg, nil, log)
	env.uc.SetClock(func() time.Time { return env.now })

	handler := authhttp.NewAuthHTTPHandler(env.uc, log)
	middleware := authhttp.NewAuthMiddleware(env.uc, cfg, log)

	env.app = fiber.New()
	env.app.Use(middleware.SecurityHeaders())

	api := env.app.Group("/api", middleware.CSRFGuard())
	handler.SetupAuthRoutes(api, middleware)

	// Stand-in for any protected resource behind the session rules.
	api.Post("/tasks", middleware.RequireSession(), func(c *fiber.Ctx) error {
		userID, _ := authhttp.GetUserID(c)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"created_by": userID})
	})
	api.Get("/tasks", middleware.RequireSession(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"tasks": []string{}})
	})

	return env
}

// seedUser creates an active account with the given credentials.
func (env *authTestEnv) seedUser(t *testing.T, email, password string) {
	t.Helper()
	user := testutil.NewUserFixture().UserWithPassword(email, password)
	require.NoError(t, env.repo.CreateUser(context.Background(), user))
}

// login authenticates through the usecase and returns the session
// credentials for use in subsequent requests.
func (env *authTestEnv) login(t *testing.T, email, password string) *usecase.LoginResult {
	t.Helper()
	result, err := env.uc.Login(context.Background(), usecase.LoginRequest{
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return result
}

// request performs an HTTP request against the app and decodes the JSON
// response body into a generic map.
func (env *authTestEnv) request(t *testing.T, method, path string, body interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// sessionHeaders builds the headers an authenticated client sends.
func sessionHeaders(result *usecase.LoginResult) map[string]string {
	return map[string]string{
		authhttp.HeaderSessionID: result.SessionID,
		authhttp.HeaderCSRFToken: result.CSRFToken,
	}
}
