package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// presenceKeyTTL bounds how long a room's presence hash survives if the
// service dies before clearing it
const presenceKeyTTL = 24 * time.Hour

// RedisPresenceStore mirrors per-room presence into Redis so gateways can
// read connection state without hitting the game engine
type RedisPresenceStore struct {
	client *redis.Client
}

// ConnectRedis creates a Redis client and verifies the connection
func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// NewRedisPresenceStore creates a presence store backed by the given client
func NewRedisPresenceStore(client *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{client: client}
}

func presenceKey(code string) string {
	return "presence:" + code
}

// SetPresence records a player's connection state for a room
func (s *RedisPresenceStore) SetPresence(ctx context.Context, code string, userID int64, connected bool) error {
	key := presenceKey(code)
	field := strconv.FormatInt(userID, 10)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, field, connected)
	pipe.Expire(ctx, key, presenceKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set presence for room %s: %w", code, err)
	}
	return nil
}

// ClearRoom drops all presence state for a room
func (s *RedisPresenceStore) ClearRoom(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, presenceKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to clear presence for room %s: %w", code, err)
	}
	return nil
}
