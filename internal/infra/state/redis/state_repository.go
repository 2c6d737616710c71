// Package redisstate implements repository.StateRepository on Redis.
package redisstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"realtime-chat/internal/domain"
)

// historyMaxLen caps the per-room recent-message list.
const historyMaxLen = 100

// RedisStateRepository is the Redis implementation of
// repository.StateRepository.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates a RedisStateRepository. keyPrefix
// namespaces all keys; it defaults to "chat:" when empty.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "chat:"
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisStateRepository) roomHistoryKey(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:messages", r.keyPrefix, roomID)
}

// PushMessageToHistory prepends the message to the room's history list
// and trims the list to historyMaxLen entries.
func (r *RedisStateRepository) PushMessageToHistory(ctx context.Context, roomID uint, message domain.Message) error {
	key := r.roomHistoryKey(roomID)
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("redis: marshal message %d for history: %w", message.ID, err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, historyMaxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push message to history for room %d: %w", roomID, err)
	}
	return nil
}

// GetRecentMessages returns up to limit cached messages, oldest first.
// Entries that fail to decode are skipped and logged rather than failing
// the whole read.
func (r *RedisStateRepository) GetRecentMessages(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > historyMaxLen {
		limit = historyMaxLen
	}
	key := r.roomHistoryKey(roomID)
	raw, err := r.client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get recent messages for room %d: %w", roomID, err)
	}

	// The list is newest-first; walk it backwards to restore
	// chronological order.
	messages := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg domain.Message
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Warn("redis: skipping undecodable history entry")
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// CleanupRoomState drops every cached key of the room.
func (r *RedisStateRepository) CleanupRoomState(ctx context.Context, roomID uint) error {
	if err := r.client.Del(ctx, r.roomHistoryKey(roomID)).Err(); err != nil {
		return fmt.Errorf("redis: cleanup state for room %d: %w", roomID, err)
	}
	return nil
}
