package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const guestKeyPrefix = "cv:guest:"

// GuestStore keeps unauthenticated resumes in Redis until their TTL expires.
type GuestStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewGuestStore(rdb *redis.Client, ttl time.Duration) *GuestStore {
	return &GuestStore{rdb: rdb, ttl: ttl}
}

func (s *GuestStore) TTL() time.Duration { return s.ttl }

func (s *GuestStore) Put(ctx context.Context, token string, data []byte) (time.Time, error) {
	if err := s.rdb.Set(ctx, guestKeyPrefix+token, data, s.ttl).Err(); err != nil {
		return time.Time{}, fmt.Errorf("store guest resume: %w", err)
	}
	return time.Now().Add(s.ttl), nil
}

func (s *GuestStore) Get(ctx context.Context, token string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, guestKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load guest resume: %w", err)
	}
	return data, nil
}

func (s *GuestStore) Delete(ctx context.Context, token string) error {
	n, err := s.rdb.Del(ctx, guestKeyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("delete guest resume: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GuestStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
