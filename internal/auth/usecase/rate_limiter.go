package usecase

import (
	"context"
	"fmt"
	"time"

	"projectgoat/internal/auth/domain/model"
	"projectgoat/internal/auth/domain/repository"
	"projectgoat/internal/shared/logger"

	"github.com/google/uuid"
)

// RateLimiter enforces the login lockout policy: an identity with too
// many failed attempts inside a trailing wall-clock window is rejected
// before the credential store is ever consulted. Counting races under
// concurrent attempts may undercount by one or two; that imprecision is
// tolerated.
type RateLimiter struct {
	repo        repository.AuthRepository
	window      time.Duration
	maxFailures int
	retention   time.Duration
	log         logger.Logger
	now         func() time.Time
}

// NewRateLimiter creates a rate limiter over the login attempt store.
func NewRateLimiter(repo repository.AuthRepository, window time.Duration, maxFailures int, retention time.Duration, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		repo:        repo,
		window:      window,
		maxFailures: maxFailures,
		retention:   retention,
		log:         log.WithComponent("rate_limiter"),
		now:         time.Now,
	}
}

// SetClock overrides the time source. Tests use it to move attempts
// through the window.
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.now = now
}

// CheckLimit reports whether a login attempt for the email is allowed.
// When locked, retryAfter is the time until the oldest counted failure
// rolls out of the window. The check compares wall-clock timestamps, so
// attempts exactly one window old no longer count.
func (rl *RateLimiter) CheckLimit(ctx context.Context, email string) (allowed bool, remaining int, retryAfter time.Duration, err error) {
	now := rl.now()
	since := now.Add(-rl.window)

	failures, err := rl.repo.RecentFailures(ctx, email, since)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to count recent failures: %w", err)
	}

	count := len(failures)
	remaining = rl.maxFailures - count
	if remaining < 0 {
		remaining = 0
	}

	if count >= rl.maxFailures {
		// failures are most recent first; index maxFailures-1 is the oldest
		// attempt still counted against the limit.
		oldestCounted := failures[rl.maxFailures-1]
		retryAfter = oldestCounted.Add(rl.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, 0, retryAfter, nil
	}

	return true, remaining, 0, nil
}

// RecordAttempt appends a login attempt. A successful attempt clears the
// identity's prior failures so future window counts start from zero, and
// piggybacks a prune of attempts past the retention horizon.
func (rl *RateLimiter) RecordAttempt(ctx context.Context, email, ip, userAgent string, success bool, failureReason string) error {
	now := rl.now()
	attempt := &model.LoginAttempt{
		ID:            uuid.New().String(),
		Email:         email,
		IPAddress:     ip,
		UserAgent:     userAgent,
		AttemptedAt:   now,
		Success:       success,
		FailureReason: failureReason,
	}

	if err := rl.repo.RecordLoginAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	if success {
		if err := rl.repo.ClearFailedAttempts(ctx, email); err != nil {
			return fmt.Errorf("failed to clear prior failures: %w", err)
		}
	}

	if err := rl.repo.DeleteAttemptsBefore(ctx, now.Add(-rl.retention)); err != nil {
		rl.log.Debugf("Opportunistic attempt pruning failed: %v", err)
	}

	return nil
}
