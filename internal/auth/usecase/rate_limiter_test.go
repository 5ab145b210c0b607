package usecase_test

import (
	"context"
	"testing"
	"time"

	"projectgoat/internal/auth/testutil"
	"projectgoat/internal/auth/usecase"
	"projectgoat/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RateLimiterTestSuite struct {
	suite.Suite
	repo    *testutil.MemoryAuthRepository
	limiter *usecase.RateLimiter
	now     time.Time
}

func (suite *RateLimiterTestSuite) SetupTest() {
	suite.repo = testutil.NewMemoryAuthRepository()
	suite.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	suite.limiter = usecase.NewRateLimiter(suite.repo, 15*time.Minute, 5, 30*24*time.Hour, logger.NewLogger())
	suite.limiter.SetClock(func() time.Time { return suite.now })
}

func (suite *RateLimiterTestSuite) recordFailures(email string, n int) {
	for i := 0; i < n; i++ {
		err := suite.limiter.RecordAttempt(context.Background(), email, "10.0.0.1", "test-agent", false, "invalid credentials")
		require.NoError(suite.T(), err)
	}
}

func (suite *RateLimiterTestSuite) TestAllowsWithNoHistory() {
	allowed, remaining, _, err := suite.limiter.CheckLimit(context.Background(), "sarah@example.com")

	require.NoError(suite.T(), err)
	assert.True(suite.T(), allowed)
	assert.Equal(suite.T(), 5, remaining)
}

func (suite *RateLimiterTestSuite) TestAllowsUpToThreshold() {
	suite.recordFailures("sarah@example.com", 4)

	allowed, remaining, _, err := suite.limiter.CheckLimit(context.Background(), "sarah@example.com")

	require.NoError(suite.T(), err)
	assert.True(suite.T(), allowed)
	assert.Equal(suite.T(), 1, remaining)
}

func (suite *RateLimiterTestSuite) TestLocksAtThreshold() {
	suite.recordFailures("sarah@example.com", 5)

	allowed, remaining, retryAfter, err := suite.limiter.CheckLimit(context.Background(), "sarah@example.com")

	require.NoError(suite.T(), err)
	assert.False(suite.T(), allowed)
	assert.Equal(suite.T(), 0, remaining)
	assert.Equal(suite.T(), 15*time.Minute, retryAfter)
}

func (suite *RateLimiterTestSuite) TestFailuresRollOffTheWindow() {
	suite.recordFailures("sarah@example.com", 5)

	// One second short of the window the lock still holds.
	suite.now = suite.now.Add(15*time.Minute - time.Second)
	allowed, _, retryAfter, err := suite.limiter.CheckLimit(context.Background(), "sarah@example.com")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), allowed)
	assert.Equal(suite.T(), time.Second, retryAfter)

	// At exactly one window the attempts no longer count.
	suite.now = suite.now.Add(time.Second)
	allowed, remaining, _, err := suite.limiter.CheckLimit(context.Background(), "sarah@example.com")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), allowed)
	assert.Equal(suite.T(), 5, remaining)
}

func (suite *RateLimiterTestSuite) TestRetryAfterTracksOldestCountedFailure() {
	// Two early failures, then four more ten minutes later. The lock is
	// driven by the oldest failure still inside the top five.
	suite.recordFailures("sarah@example.com", 2)
	suite.now = suite.now.Add(10 * time.Minute)
	suite.recordFailures("sarah@example.com", 4)

	allowed, _, retryAfter, err := suite.limiter.CheckLimit(context.Background(), "sarah@example.com")

	require.NoError(suite.T(), err)
	assert.False(suite.T(), allowed)
	// Counted failures, most recent first, are the four late ones plus the
	// second early one; that one is 10 minutes old, so 5 minutes remain.
	assert.Equal(suite.T(), 5*time.Minute, retryAfter)
}

func (suite *RateLimiterTestSuite) TestSuccessClearsFailureCount() {
	suite.recordFailures("sarah@example.com", 4)

	err := suite.limiter.RecordAttempt(context.Background(), "sarah@example.com", "10.0.0.1", "test-agent", true, "")
	require.NoError(suite.T(), err)

	allowed, remaining, _, err := suite.limiter.CheckLimit(context.Background(), "sarah@example.com")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), allowed)
	assert.Equal(suite.T(), 5, remaining)
}

func (suite *RateLimiterTestSuite) TestLimitsArePerIdentity() {
	suite.recordFailures("sarah@example.com", 5)

	allowed, remaining, _, err := suite.limiter.CheckLimit(context.Background(), "other@example.com")

	require.NoError(suite.T(), err)
	assert.True(suite.T(), allowed)
	assert.Equal(suite.T(), 5, remaining)
}

func TestRateLimiterTestSuite(t *testing.T) {
	suite.Run(t, new(RateLimiterTestSuite))
}
