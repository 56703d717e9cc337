package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "convobot:session:"

// RedisStore is a Redis-backed session store for deployments where the
// engine runs behind more than one process. TTL enforcement is delegated
// to Redis key expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	slog.Info("connected to redis session store", "addr", addr, "db", db)
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Context, error) {
	blob, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewContext(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}

	// Reading a session keeps it alive.
	if err := s.client.Expire(ctx, keyPrefix+sessionID, s.ttl).Err(); err != nil {
		slog.Warn("refreshing session ttl failed", "session", sessionID, "error", err)
	}
	return Decode(blob)
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, sc *Context) error {
	blob, err := sc.Encode()
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+sessionID, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", sessionID, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }
