package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis caches each viewer's followed-group id set. The my-groups feed
// resolves this set on every request; keeping it here saves the store
// a membership query per page.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings the server to ensure
// the connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

const (
	followedGroupsPrefix = "followed-groups"
	followedGroupsTTL    = 10 * time.Minute
)

func followedGroupsKey(userID string) string {
	return fmt.Sprintf("%s:%s", followedGroupsPrefix, userID)
}

// FollowedGroupIDs returns the cached followed-group id set for the
// user. The second return value is false on a cache miss.
func (r *Redis) FollowedGroupIDs(ctx context.Context, userID string) ([]string, bool, error) {
	key := followedGroupsKey(userID)

	exists, err := r.cli.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("exists: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	ids, err := r.cli.SMembers(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("smembers: %w", err)
	}
	return ids, true, nil
}

// SetFollowedGroupIDs replaces the cached set in one pipelined write
// and refreshes its TTL.
func (r *Redis) SetFollowedGroupIDs(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return r.InvalidateFollowedGroupIDs(ctx, userID)
	}
	key := followedGroupsKey(userID)

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, followedGroupsTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set followed groups: %w", err)
	}
	return nil
}

// InvalidateFollowedGroupIDs drops the cached set. Called whenever the
// user's group membership changes.
func (r *Redis) InvalidateFollowedGroupIDs(ctx context.Context, userID string) error {
	if err := r.cli.Del(ctx, followedGroupsKey(userID)).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}
