package auth

import (
	"context"
	"fmt"

	authhttp "projectgoat/internal/auth/adapter/http"
	"projectgoat/internal/auth/adapter/persistence"
	"projectgoat/internal/auth/adapter/persistence/mongodb"
	"projectgoat/internal/auth/config"
	"projectgoat/internal/auth/domain/model"
	"projectgoat/internal/auth/domain/repository"
	"projectgoat/internal/auth/usecase"
	"projectgoat/internal/shared/eventbus"
	"projectgoat/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuthModule represents the complete authentication module
type AuthModule struct {
	repository repository.AuthRepository
	auditStore repository.AuditStore
	usecase    usecase.AuthUsecaseInterface
	handler    *authhttp.AuthHTTPHandler
	middleware *authhttp.AuthMiddleware
	config     *config.Config
	bus        eventbus.EventBusInterface
}

// NewAuthModule wires the authentication module: MongoDB-backed
// credential/session/attempt storage, the login rate limiter, the
// Redis-backed audit trail and the HTTP surface.
func NewAuthModule(
	db *mongo.Database,
	redisClient *redis.Client,
	cfg *config.Config,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) (*AuthModule, error) {
	authRepo, err := mongodb.NewMongoAuthRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth repository: %w", err)
	}

	limiter := usecase.NewRateLimiter(
		authRepo,
		cfg.RateLimitWindow,
		cfg.RateLimitMaxFailures,
		cfg.AttemptRetention,
		log,
	)

	authUsecase := usecase.NewAuthUsecase(authRepo, limiter, cfg, bus, log)

	auditStore := persistence.NewRedisAuditStore(redisClient, cfg.AuditStreamMaxLength, log)
	subscribeAudit(bus, auditStore)

	handler := authhttp.NewAuthHTTPHandler(authUsecase, log)
	middleware := authhttp.NewAuthMiddleware(authUsecase, cfg, log)

	return &AuthModule{
		repository: authRepo,
		auditStore: auditStore,
		usecase:    authUsecase,
		handler:    handler,
		middleware: middleware,
		config:     cfg,
		bus:        bus,
	}, nil
}

// subscribeAudit fans every security event out to the audit store.
func subscribeAudit(bus eventbus.EventBusInterface, store repository.AuditStore) {
	handler := func(ctx context.Context, event eventbus.Event) error {
		sec, ok := event.Data().(model.SecurityEvent)
		if !ok {
			return nil
		}
		return store.StoreEvent(ctx, sec)
	}

	for _, eventType := range []string{
		model.EventLoginSucceeded,
		model.EventLoginFailed,
		model.EventLoginLocked,
		model.EventLogout,
		model.EventSessionExpired,
		model.EventPasswordChanged,
		model.EventUserRegistered,
	} {
		bus.Subscribe(eventType, handler)
	}
}

// RegisterRoutes registers authentication routes with the provided router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	am.handler.SetupAuthRoutes(router, am.middleware)
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}

// GetAuditStore returns the security audit store
func (am *AuthModule) GetAuditStore() repository.AuditStore {
	return am.auditStore
}

// Stop performs cleanup when the module is shut down
func (am *AuthModule) Stop() error {
	return nil
}
