package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry stores presence sets in Redis so multiple relay processes can
// share a consistent membership view. Each document maps to one Redis set;
// the key disappears automatically when the set empties, which matches the
// registry contract.
type RedisRegistry struct {
	rdb *redis.Client
}

func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func presenceKey(documentID string) string {
	return "presence:doc:" + documentID
}

func (r *RedisRegistry) Join(ctx context.Context, documentID, userID string) ([]string, error) {
	key := presenceKey(documentID)
	if err := r.rdb.SAdd(ctx, key, userID).Err(); err != nil {
		return nil, fmt.Errorf("presence join: %w", err)
	}
	return r.members(ctx, key)
}

func (r *RedisRegistry) Leave(ctx context.Context, documentID, userID string) ([]string, error) {
	key := presenceKey(documentID)
	if err := r.rdb.SRem(ctx, key, userID).Err(); err != nil {
		return nil, fmt.Errorf("presence leave: %w", err)
	}
	return r.members(ctx, key)
}

func (r *RedisRegistry) Members(ctx context.Context, documentID string) ([]string, error) {
	return r.members(ctx, presenceKey(documentID))
}

func (r *RedisRegistry) members(ctx context.Context, key string) ([]string, error) {
	members, err := r.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("presence members: %w", err)
	}
	sort.Strings(members)
	return members, nil
}
