package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	profileKeyPrefix    = "profile:"
	generationKeyPrefix = "profile:gen:"

	// outlives any in-flight read by a wide margin
	generationTTL = 24 * time.Hour
)

type RedisProfileCache struct {
	client *redis.Client
}

func NewRedisProfileCache(client *redis.Client) *RedisProfileCache {
	return &RedisProfileCache{
		client: client,
	}
}

func profileKey(userID uuid.UUID) string {
	return profileKeyPrefix + userID.String()
}

func generationKey(userID uuid.UUID) string {
	return generationKeyPrefix + userID.String()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, g getter, key string) (int64, error) {
	gen, err := g.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RedisProfileCache) Get(ctx context.Context, userID uuid.UUID) (model.UserWithProfile, bool, error) {
	raw, err := r.client.Get(ctx, profileKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return model.UserWithProfile{}, false, nil
	case err != nil:
		return model.UserWithProfile{}, false, err
	}

	var view model.UserWithProfile
	if err := json.Unmarshal(raw, &view); err != nil {
		// stale or foreign payload, drop it
		_ = r.client.Del(ctx, profileKey(userID)).Err()
		return model.UserWithProfile{}, false, err
	}
	return view, true, nil
}

func (r *RedisProfileCache) Generation(ctx context.Context, userID uuid.UUID) (int64, error) {
	return readGeneration(ctx, r.client, generationKey(userID))
}

// Set never stores the password hash. The write runs under WATCH on the
// generation key, so an Invalidate racing with it wins.
func (r *RedisProfileCache) Set(ctx context.Context, view model.UserWithProfile, gen int64, ttl time.Duration) (bool, error) {
	view.User.PasswordHash = ""
	raw, err := json.Marshal(view)
	if err != nil {
		return false, err
	}

	genKey := generationKey(view.User.ID)
	stored := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, profileKey(view.User.ID), raw, ttl)
			return nil
		})
		stored = err == nil
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

func (r *RedisProfileCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	genKey := generationKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, profileKey(userID))
		return nil
	})
	return err
}
