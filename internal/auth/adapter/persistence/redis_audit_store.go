package persistence

import (
	"context"
	"strconv"
	"time"

	"projectgoat/internal/auth/domain/model"
	"projectgoat/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// securityStream is the Redis Stream holding the security audit trail.
const securityStream = "security:events"

// RedisAuditStore persists security events to a capped Redis Stream.
// Audit writes are best-effort: a failure here is logged, never allowed
// to fail the request that produced the event.
type RedisAuditStore struct {
	client    *redis.Client
	logger    logger.Logger
	maxLength int64
}

// NewRedisAuditStore creates a new Redis-based audit store
func NewRedisAuditStore(client *redis.Client, maxLength int64, log logger.Logger) *RedisAuditStore {
	if maxLength <= 0 {
		maxLength = 10000
	}
	return &RedisAuditStore{
		client:    client,
		logger:    log.WithComponent("audit_store"),
		maxLength: maxLength,
	}
}

// StoreEvent appends a security event to the audit stream
func (r *RedisAuditStore) StoreEvent(ctx context.Context, event model.SecurityEvent) error {
	_, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: securityStream,
		MaxLen: r.maxLength,
		Approx: true,
		Values: map[string]interface{}{
			"type":       event.Type,
			"email":      event.Email,
			"user_id":    event.UserID,
			"session_id": event.SessionID,
			"ip_address": event.IPAddress,
			"reason":     event.Reason,
			"timestamp":  event.Timestamp.UnixNano(),
		},
	}).Result()

	if err != nil {
		r.logger.Error("Failed to store security event in Redis",
			zap.String("stream", securityStream),
			zap.String("eventType", event.Type),
			zap.Error(err))
		return err
	}

	r.logger.Debug("Security event stored",
		zap.String("stream", securityStream),
		zap.String("eventType", event.Type))

	return nil
}

// RecentEvents returns up to limit events from the audit stream, most
// recent first
func (r *RedisAuditStore) RecentEvents(ctx context.Context, limit int64) ([]model.SecurityEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	messages, err := r.client.XRevRangeN(ctx, securityStream, "+", "-", limit).Result()
	if err != nil {
		r.logger.Error("Failed to read security events from Redis",
			zap.String("stream", securityStream),
			zap.Error(err))
		return nil, err
	}

	events := make([]model.SecurityEvent, 0, len(messages))
	for _, msg := range messages {
		events = append(events, eventFromValues(msg.Values))
	}
	return events, nil
}

func eventFromValues(values map[string]interface{}) model.SecurityEvent {
	event := model.SecurityEvent{
		Type:      stringValue(values, "type"),
		Email:     stringValue(values, "email"),
		UserID:    stringValue(values, "user_id"),
		SessionID: stringValue(values, "session_id"),
		IPAddress: stringValue(values, "ip_address"),
		Reason:    stringValue(values, "reason"),
	}
	if ts := stringValue(values, "timestamp"); ts != "" {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			event.Timestamp = time.Unix(0, nanos)
		}
	}
	return event
}

func stringValue(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}
