package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	FollowingKeyPrefix    = "following:%d:%d"
	FollowingGenKeyPrefix = "following:gen:%d"
)

const (
	FollowingTTL = time.Minute
)

// FollowingKey names the cached set for userID at generation gen.
func FollowingKey(userID uint, gen int64) string {
	return fmt.Sprintf(FollowingKeyPrefix, userID, gen)
}

func FollowingGenKey(userID uint) string {
	return fmt.Sprintf(FollowingGenKeyPrefix, userID)
}

// FollowingSets caches the ids a user follows. A nil client disables caching;
// Redis failures fall back to the loader rather than failing the read.
//
// Sets are stored under a per-user generation that Invalidate bumps. A reader
// that loaded before an invalidation writes back under the old generation,
// which no later reader looks at.
type FollowingSets struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFollowingSets binds the cache to rdb. ttl <= 0 uses FollowingTTL.
func NewFollowingSets(rdb *redis.Client, ttl time.Duration) *FollowingSets {
	if ttl <= 0 {
		ttl = FollowingTTL
	}
	return &FollowingSets{rdb: rdb, ttl: ttl}
}

// Following returns the cached set for userID, calling load on a miss and
// storing its result.
func (f *FollowingSets) Following(ctx context.Context, userID uint, load func(ctx context.Context) ([]uint, error)) ([]uint, error) {
	if f == nil || f.rdb == nil {
		return load(ctx)
	}

	gen, err := f.rdb.Get(ctx, FollowingGenKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.Logger.WarnContext(ctx, "following cache generation read failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
		return load(ctx)
	}

	key := FollowingKey(userID, gen)
	var ids []uint
	found, err := GetJSON(ctx, f.rdb, key, &ids)
	if err != nil {
		observability.Logger.WarnContext(ctx, "following cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return ids, nil
	}

	ids, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint{}
	}
	if err := SetJSON(ctx, f.rdb, key, ids, f.ttl); err != nil {
		observability.Logger.WarnContext(ctx, "following cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return ids, nil
}

// Invalidate moves userID to a new generation and drops the previous set.
func (f *FollowingSets) Invalidate(ctx context.Context, userID uint) {
	if f == nil || f.rdb == nil {
		return
	}
	gen, err := f.rdb.Incr(ctx, FollowingGenKey(userID)).Result()
	if err != nil {
		observability.Logger.WarnContext(ctx, "following cache invalidate failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
		return
	}
	if err := f.rdb.Del(ctx, FollowingKey(userID, gen-1)).Err(); err != nil {
		observability.Logger.WarnContext(ctx, "following cache invalidate failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
}
