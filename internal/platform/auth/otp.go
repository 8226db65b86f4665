package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const otpKeyPrefix = "otp:"

type otpEntry struct {
	Email  string
	Digest string
}

// OTPCache holds pending one-time codes, keyed by the opaque id handed
// to the client. Entries carry a TTL so abandoned sign-ins clean
// themselves up.
type OTPCache interface {
	Put(ctx context.Context, id string, entry otpEntry, ttl time.Duration) error
	Get(ctx context.Context, id string) (otpEntry, error)
	Delete(ctx context.Context, id string) error
}

var ErrOTPNotFound = errors.New("otp not found or expired")

type RedisOTPCache struct {
	client *redis.Client
}

func NewRedisOTPCache(client *redis.Client) *RedisOTPCache {
	return &RedisOTPCache{client: client}
}

func otpKey(id string) string { return otpKeyPrefix + id }

func (c *RedisOTPCache) Put(ctx context.Context, id string, entry otpEntry, ttl time.Duration) error {
	key := otpKey(id)
	pipe := c.client.Pipeline()
	pipe.HMSet(ctx, key, map[string]interface{}{
		"email":  entry.Email,
		"digest": entry.Digest,
	})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache otp: %w", err)
	}
	return nil
}

func (c *RedisOTPCache) Get(ctx context.Context, id string) (otpEntry, error) {
	data, err := c.client.HGetAll(ctx, otpKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return otpEntry{}, ErrOTPNotFound
		}
		return otpEntry{}, fmt.Errorf("failed to read otp: %w", err)
	}
	if len(data) == 0 {
		return otpEntry{}, ErrOTPNotFound
	}
	return otpEntry{Email: data["email"], Digest: data["digest"]}, nil
}

func (c *RedisOTPCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, otpKey(id)).Err()
}
