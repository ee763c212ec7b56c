package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// Store keeps one key per issued token id. A token whose key is gone has been logged out
// or has expired.
type Store struct {
	rdb redis.Cmdable
}

func New(rdb redis.Cmdable) *Store { return &Store{rdb: rdb} }

func key(jti string) string { return keyPrefix + jti }

func (s *Store) Put(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key(jti), userID, ttl).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

// Owner returns the user id bound to jti, or 0 when the session does not exist.
func (s *Store) Owner(ctx context.Context, jti string) (int64, error) {
	v, err := s.rdb.Get(ctx, key(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("session get: %w", err)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session get: bad value %q", v)
	}
	return id, nil
}

func (s *Store) Revoke(ctx context.Context, jti string) error {
	if err := s.rdb.Del(ctx, key(jti)).Err(); err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}
	return nil
}

// Connect opens a client and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
