package auth

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "blacklist:"

// RedisRevocations keeps logged-out tokens in Redis until they expire
type RedisRevocations struct {
	rdb *redis.Client
}

func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{rdb: rdb}
}

// IsRevoked checks the blacklist
func (r *RedisRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
