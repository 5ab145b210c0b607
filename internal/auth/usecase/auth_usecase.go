package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"projectgoat/internal/auth/adapter/security"
	"projectgoat/internal/auth/config"
	"projectgoat/internal/auth/domain/model"
	"projectgoat/internal/auth/domain/repository"
	"projectgoat/internal/shared/eventbus"
	apperrors "projectgoat/internal/shared/errors"
	"projectgoat/internal/shared/logger"

	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// LoginRequest carries the credentials plus the client fingerprint
// recorded on the session and the login attempt.
type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// RegisterRequest represents a signup request
type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// ProfileUpdate carries the mutable profile fields
type ProfileUpdate struct {
	Name         string `json:"name"`
	Avatar       string `json:"avatar"`
	Availability string `json:"availability"`
}

// LoginResult is returned on successful login or registration. The client
// persists SessionID and CSRFToken and attaches them to every request.
type LoginResult struct {
	SessionID string      `json:"sessionId"`
	CSRFToken string      `json:"csrfToken"`
	User      *model.User `json:"user"`
}

// AuthUsecaseInterface defines the contract for authentication use cases.
type AuthUsecaseInterface interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Register(ctx context.Context, req RegisterRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	// ValidateSession checks the compound expiry rule without extending the
	// session. Expired sessions are deleted and reported with a reason code.
	ValidateSession(ctx context.Context, sessionID string) (*model.Session, error)
	// AuthorizeRequest validates the session and, when active, records
	// activity (touch) as a side effect.
	AuthorizeRequest(ctx context.Context, sessionID string) (*model.Session, error)
	CheckSession(ctx context.Context, sessionID string) (*model.User, bool)
	ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) (string, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error)
}

// AuthUsecase implements the authentication logic over injected stores.
type AuthUsecase struct {
	repo    repository.AuthRepository
	limiter *RateLimiter
	config  *config.Config
	bus     eventbus.EventBusInterface
	log     logger.Logger
	now     func() time.Time
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(
	repo repository.AuthRepository,
	limiter *RateLimiter,
	cfg *config.Config,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		repo:    repo,
		limiter: limiter,
		config:  cfg,
		bus:     bus,
		log:     log.WithComponent("auth_usecase"),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests use it to drive expiry.
func (uc *AuthUsecase) SetClock(now func() time.Time) {
	uc.now = now
	uc.limiter.now = now
}

func (uc *AuthUsecase) validateEmail(email string) error {
	if email == "" {
		return apperrors.NewValidationError("email is required")
	}
	if !emailRegex.MatchString(email) {
		return apperrors.NewValidationError("invalid email format")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates a user and creates a session. The rate limiter is
// consulted first; while locked the credential store is never reached.
func (uc *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if err := uc.validateEmail(email); err != nil {
		return nil, err
	}

	allowed, _, retryAfter, err := uc.limiter.CheckLimit(ctx, email)
	if err != nil {
		return nil, apperrors.WrapError(err, "rate limit check failed")
	}
	if !allowed {
		uc.recordAttempt(ctx, email, req.IPAddress, req.UserAgent, false, "account locked")
		uc.publishEvent(ctx, model.SecurityEvent{
			Type: model.EventLoginLocked, Email: email, IPAddress: req.IPAddress, Timestamp: uc.now(),
		})
		retrySeconds := int(retryAfter.Round(time.Second).Seconds())
		return nil, apperrors.NewRateLimitedError(
			"too many failed login attempts, try again later", retrySeconds)
	}

	user, err := uc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			uc.recordAttempt(ctx, email, req.IPAddress, req.UserAgent, false, "email not found")
			uc.publishLoginFailed(ctx, email, req.IPAddress, "email not found")
			return nil, apperrors.NewAuthenticationError("invalid email or password")
		}
		return nil, apperrors.WrapError(err, "failed to look up user")
	}

	if !user.IsActive {
		uc.recordAttempt(ctx, email, req.IPAddress, req.UserAgent, false, "account disabled")
		uc.publishLoginFailed(ctx, email, req.IPAddress, "account disabled")
		return nil, apperrors.NewAuthorizationError("account has been disabled, contact an administrator")
	}

	if !security.VerifyPassword(req.Password, user.PasswordHash) {
		uc.recordAttempt(ctx, email, req.IPAddress, req.UserAgent, false, "invalid credentials")
		uc.publishLoginFailed(ctx, email, req.IPAddress, "invalid credentials")
		return nil, apperrors.NewAuthenticationError("invalid email or password")
	}

	uc.recordAttempt(ctx, email, req.IPAddress, req.UserAgent, true, "")

	if err := uc.repo.UpdateLastLogin(ctx, user.ID, uc.now()); err != nil {
		uc.log.Warnf("Failed to update last login for user %s: %v", user.ID, err)
	}

	session, err := uc.createSession(ctx, user.ID, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, model.SecurityEvent{
		Type: model.EventLoginSucceeded, Email: email, UserID: user.ID,
		SessionID: session.ID, IPAddress: req.IPAddress, Timestamp: uc.now(),
	})

	return &LoginResult{
		SessionID: session.ID,
		CSRFToken: session.CSRFToken,
		User:      user.PublicProfile(),
	}, nil
}

// Register creates a new user and logs them in.
func (uc *AuthUsecase) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if err := uc.validateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	if ve := security.ValidatePasswordStrength(req.Password); ve != nil {
		return nil, ve.ToAppError()
	}

	existing, err := uc.repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.WrapError(err, "failed to check existing user")
	}
	if existing != nil {
		return nil, apperrors.NewConflictError("email is already registered")
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to hash password")
	}

	now := uc.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Role:         "member",
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailTaken) {
			return nil, apperrors.NewConflictError("email is already registered")
		}
		return nil, apperrors.WrapError(err, "failed to create user")
	}

	session, err := uc.createSession(ctx, user.ID, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, model.SecurityEvent{
		Type: model.EventUserRegistered, Email: email, UserID: user.ID,
		SessionID: session.ID, IPAddress: req.IPAddress, Timestamp: now,
	})

	return &LoginResult{
		SessionID: session.ID,
		CSRFToken: session.CSRFToken,
		User:      user.PublicProfile(),
	}, nil
}

func (uc *AuthUsecase) createSession(ctx context.Context, userID, ip, userAgent string) (*model.Session, error) {
	sessionID, err := security.GenerateToken()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to generate session id")
	}
	csrfToken, err := security.GenerateToken()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to generate csrf token")
	}

	now := uc.now()
	session := &model.Session{
		ID:               sessionID,
		UserID:           userID,
		CSRFToken:        csrfToken,
		IPAddress:        ip,
		UserAgent:        userAgent,
		CreatedAt:        now,
		LastActivityAt:   now,
		AbsoluteExpiryAt: now.Add(uc.config.AbsoluteTimeout),
	}
	if err := uc.repo.CreateSession(ctx, session); err != nil {
		return nil, apperrors.WrapError(err, "failed to create session")
	}
	return session, nil
}

// Logout deletes the session. Deleting an already-gone session is not an
// error; logout is idempotent.
func (uc *AuthUsecase) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	session, err := uc.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return nil
		}
		return apperrors.WrapError(err, "failed to load session")
	}

	if err := uc.repo.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
		return apperrors.WrapError(err, "failed to delete session")
	}

	uc.publishEvent(ctx, model.SecurityEvent{
		Type: model.EventLogout, UserID: session.UserID, SessionID: sessionID, Timestamp: uc.now(),
	})
	return nil
}

// ValidateSession loads the session and applies the compound idle/absolute
// rule. Expiry is evaluated before any write, so an expired session can
// never be revived by touching it. Expired sessions are deleted.
func (uc *AuthUsecase) ValidateSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, apperrors.NewAuthenticationError("authentication required").
			WithCode(apperrors.ReasonSessionNotFound)
	}

	session, err := uc.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, apperrors.NewAuthenticationError("invalid or expired session").
				WithCode(apperrors.ReasonSessionNotFound)
		}
		return nil, apperrors.WrapError(err, "failed to load session")
	}

	switch session.State(uc.now(), uc.config.IdleTimeout) {
	case model.SessionAbsoluteExpired:
		uc.expireSession(ctx, session, apperrors.ReasonAbsoluteTimeout)
		return nil, apperrors.NewSessionExpiredError(apperrors.ReasonAbsoluteTimeout)
	case model.SessionIdleExpired:
		uc.expireSession(ctx, session, apperrors.ReasonIdleTimeout)
		return nil, apperrors.NewSessionExpiredError(apperrors.ReasonIdleTimeout)
	}

	return session, nil
}

// AuthorizeRequest validates the session and records activity. Touch
// failures are logged and discarded: a vanished row is the expected race
// with a concurrent logout, anything else is a storage fault worth alerting
// on, but neither fails the request that already passed validation.
func (uc *AuthUsecase) AuthorizeRequest(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := uc.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.TouchSession(ctx, session.ID, uc.now()); err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			uc.log.WithContext(ctx).Debugf("Session %s vanished before touch (concurrent logout)", session.ID)
		} else {
			uc.log.WithContext(ctx).Errorf("Failed to touch session %s: %v", session.ID, err)
		}
	}

	return session, nil
}

func (uc *AuthUsecase) expireSession(ctx context.Context, session *model.Session, reason string) {
	if err := uc.repo.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
		uc.log.Warnf("Failed to delete expired session %s: %v", session.ID, err)
	}
	uc.publishEvent(ctx, model.SecurityEvent{
		Type: model.EventSessionExpired, UserID: session.UserID,
		SessionID: session.ID, Reason: reason, Timestamp: uc.now(),
	})
}

// CheckSession reports whether the session identifies a user. It never
// errors: any invalid, expired, or unknown session is simply unauthenticated.
func (uc *AuthUsecase) CheckSession(ctx context.Context, sessionID string) (*model.User, bool) {
	session, err := uc.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, false
	}

	user, err := uc.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, false
	}
	return user.PublicProfile(), true
}

// ChangePassword rotates the user's credential. Every other session for
// the user is invalidated; the initiating session survives with a freshly
// regenerated CSRF token.
func (uc *AuthUsecase) ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) (string, error) {
	session, err := uc.ValidateSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	user, err := uc.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return "", apperrors.WrapError(err, "failed to load user")
	}

	if !security.VerifyPassword(currentPassword, user.PasswordHash) {
		return "", apperrors.NewValidationError("current password is incorrect")
	}
	if ve := security.ValidatePasswordStrength(newPassword); ve != nil {
		return "", ve.ToAppError()
	}
	if security.VerifyPassword(newPassword, user.PasswordHash) {
		return "", apperrors.NewValidationError("new password must be different from current password")
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return "", apperrors.WrapError(err, "failed to hash password")
	}

	now := uc.now()
	if err := uc.repo.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return "", apperrors.WrapError(err, "failed to update password")
	}

	if err := uc.repo.DeleteUserSessions(ctx, user.ID, session.ID); err != nil {
		return "", apperrors.WrapError(err, "failed to invalidate other sessions")
	}

	newCSRF, err := security.GenerateToken()
	if err != nil {
		return "", apperrors.WrapError(err, "failed to generate csrf token")
	}
	if err := uc.repo.UpdateSessionCSRF(ctx, session.ID, newCSRF); err != nil {
		return "", apperrors.WrapError(err, "failed to rotate csrf token")
	}

	uc.publishEvent(ctx, model.SecurityEvent{
		Type: model.EventPasswordChanged, Email: user.Email, UserID: user.ID,
		SessionID: session.ID, Timestamp: now,
	})

	return newCSRF, nil
}

// GetUserByID retrieves a user's public profile.
func (uc *AuthUsecase) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user ID is required")
	}
	user, err := uc.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user")
		}
		return nil, apperrors.WrapError(err, "failed to load user")
	}
	return user.PublicProfile(), nil
}

// UpdateProfile applies the non-empty fields of upd to the user.
func (uc *AuthUsecase) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	user, err := uc.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user")
		}
		return nil, apperrors.WrapError(err, "failed to load user")
	}

	if name := strings.TrimSpace(upd.Name); name != "" {
		user.Name = name
	}
	if upd.Avatar != "" {
		user.Avatar = upd.Avatar
	}
	if upd.Availability != "" {
		user.Availability = upd.Availability
	}
	user.UpdatedAt = uc.now()

	if err := uc.repo.UpdateUser(ctx, user); err != nil {
		return nil, apperrors.WrapError(err, "failed to update user")
	}
	return user.PublicProfile(), nil
}

func (uc *AuthUsecase) recordAttempt(ctx context.Context, email, ip, userAgent string, success bool, reason string) {
	if err := uc.limiter.RecordAttempt(ctx, email, ip, userAgent, success, reason); err != nil {
		uc.log.Errorf("Failed to record login attempt for %s: %v", email, err)
	}
}

func (uc *AuthUsecase) publishLoginFailed(ctx context.Context, email, ip, reason string) {
	uc.publishEvent(ctx, model.SecurityEvent{
		Type: model.EventLoginFailed, Email: email, IPAddress: ip, Reason: reason, Timestamp: uc.now(),
	})
}

func (uc *AuthUsecase) publishEvent(ctx context.Context, event model.SecurityEvent) {
	if uc.bus == nil {
		return
	}
	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(event.Type, event, "auth"))
}

// Ensure AuthUsecase implements AuthUsecaseInterface
var _ AuthUsecaseInterface = (*AuthUsecase)(nil)
