package logger

import (
	"context"
	"testing"

	"projectgoat/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
)

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("debug", "json")
}

func TestLogrusLogger_WithFieldsAndContext(t *testing.T) {
	log := NewLogger()

	withFields := log.WithFields(map[string]interface{}{"foo": "bar"})
	assert.NotNil(t, withFields)

	ctx := context.Background()
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, "user-1")
	ctx = context.WithValue(ctx, contextkeys.SessionIDKey, "session-1")
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "req-1")
	withContext := log.WithContext(ctx)
	assert.NotNil(t, withContext)
}

func TestLogrusLogger_WithComponent(t *testing.T) {
	log := NewLogger()
	assert.NotNil(t, log.WithComponent("auth_middleware"))
}
