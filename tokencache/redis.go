package tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	identity "github.com/campuskit/identity-go"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists tokens in Redis with a TTL. Used on web deployments
// where "secure storage" is a server-side session cache rather than
// device storage.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// compile-time check
var _ identity.TokenStore = (*RedisStore)(nil)

// RedisOption configures the RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key namespace. Default "identity:token:".
func WithPrefix(p string) RedisOption {
	return func(s *RedisStore) { s.prefix = p }
}

// WithTTL bounds how long a stored token lives. Default 12 hours; zero
// means no expiry.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

// DefaultRedisTTL is the default lifetime of a stored token.
const DefaultRedisTTL = 12 * time.Hour

// NewRedisStore creates a token store over an existing Redis client. The
// caller owns the client's lifecycle.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "identity:token:", ttl: DefaultRedisTTL}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the token under key, or "" when absent. Transport failures
// surface as ErrSecureStorageUnavailable for the cache layer to absorb.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", identity.ErrSecureStorageUnavailable, err)
	}
	return v, nil
}

// Set stores value under key with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", identity.ErrSecureStorageUnavailable, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", identity.ErrSecureStorageUnavailable, err)
	}
	return nil
}
