package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const resetCodeKeyPrefix = "sueno:resetcode:"

// consumeScript compares and deletes in a single Redis round trip, so two
// concurrent consumes of the same code cannot both observe it present.
var consumeScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if stored == false then
	return "missing"
end
if stored ~= ARGV[1] then
	return "mismatch"
end
redis.call("DEL", KEYS[1])
return "ok"
`)

// RedisResetCodeStore keeps pending reset codes in Redis with native TTL
// expiry, so codes survive restarts and are shared across replicas.
//
// Redis deletes expired keys itself, so an expired code is indistinguishable
// from one that never existed; Consume reports both as ErrCodeNotFound.
type RedisResetCodeStore struct {
	client *redis.Client
}

// NewRedisResetCodeStore creates a store backed by the given Redis client.
func NewRedisResetCodeStore(client *redis.Client) *RedisResetCodeStore {
	return &RedisResetCodeStore{client: client}
}

// Create implements ResetCodeStore.
func (s *RedisResetCodeStore) Create(ctx context.Context, email, code string, ttl time.Duration) error {
	key := resetCodeKeyPrefix + normalizeEmail(email)
	if err := s.client.Set(ctx, key, strings.ToUpper(code), ttl).Err(); err != nil {
		return fmt.Errorf("storing reset code: %w", err)
	}
	return nil
}

// Consume implements ResetCodeStore.
func (s *RedisResetCodeStore) Consume(ctx context.Context, email, code string) error {
	key := resetCodeKeyPrefix + normalizeEmail(email)

	res, err := consumeScript.Run(ctx, s.client, []string{key}, strings.ToUpper(code)).Text()
	if err != nil {
		return fmt.Errorf("consuming reset code: %w", err)
	}
	switch res {
	case "ok":
		return nil
	case "mismatch":
		return ErrCodeMismatch
	default:
		return ErrCodeNotFound
	}
}
