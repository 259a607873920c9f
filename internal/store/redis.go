package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/exercise-tracker/internal/logger"
	"github.com/ayush/exercise-tracker/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

const userKeyPrefix = "user:"

// CachedStore puts a read-through Redis cache in front of GetUserByID.
// Users are never updated, so entries only leave the cache by TTL.
// Redis failures are logged and the backing store is used instead.
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewCachedStore(next Store, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedStore {
	return &CachedStore{Store: next, rdb: rdb, ttl: ttl, log: log}
}

func (s *CachedStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	key := userKeyPrefix + id

	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u models.User
		if jerr := json.Unmarshal(raw, &u); jerr == nil {
			return &u, nil
		}
		s.log.WithFields(ctx, logger.Fields{"key": key}).Warnf("dropping undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		s.log.WithFields(ctx, logger.Fields{"key": key}).Warnf("user cache get: %v", err)
	}

	u, err := s.Store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if b, jerr := json.Marshal(u); jerr == nil {
		if serr := s.rdb.Set(ctx, key, b, s.ttl).Err(); serr != nil {
			s.log.WithFields(ctx, logger.Fields{"key": key}).Warnf("user cache set: %v", serr)
		}
	}
	return u, nil
}

func (s *CachedStore) Close(ctx context.Context) error {
	err := s.Store.Close(ctx)
	if cerr := s.rdb.Close(); err == nil {
		err = cerr
	}
	return err
}
