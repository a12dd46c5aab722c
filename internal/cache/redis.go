package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/karvek/albion-scalper/internal/models"
)

const redisKeyPrefix = "market_cache:"

// RedisStore satisfies the same contract as FileStore on top of Redis.
// Expiry is delegated to Redis TTLs. Intended for deployments where
// several scanner processes share one cache.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
	stats  statsCounter
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "redis_cache"),
	}
}

// Get returns the payload when a fresh entry exists. Redis errors and
// corrupt entries are treated as misses; corrupt entries are deleted.
func (s *RedisStore) Get(ctx context.Context, keyParts []string) ([]byte, bool) {
	key := redisKeyPrefix + Key(keyParts)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		s.stats.miss()
		return nil, false
	}
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Redis read failed")
		s.stats.miss()
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || len(e.Payload) == 0 {
		s.logger.WithError(models.ErrCacheCorrupt).WithField("key", key).
			Warn("Removing unreadable cache entry")
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Cannot remove cache entry")
		}
		s.stats.miss()
		return nil, false
	}

	s.stats.hit()
	return e.Payload, true
}

// Put stores the entry with the configured TTL. Failures are logged and
// swallowed.
func (s *RedisStore) Put(ctx context.Context, keyParts []string, payload []byte) {
	key := redisKeyPrefix + Key(keyParts)

	data, err := json.Marshal(newEntry(keyParts, payload))
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cannot encode cache entry")
		return
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Redis write failed")
		return
	}
	s.stats.set()
}

// Clear removes every entry under the cache prefix.
func (s *RedisStore) Clear(ctx context.Context) int {
	removed := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.WithError(err).WithField("key", iter.Val()).Warn("Cannot remove cache entry")
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		s.logger.WithError(err).Warn("Cache scan failed")
	}

	s.logger.WithField("removed", removed).Info("Cache cleared")
	return removed
}

// GetStats returns a snapshot of hit/miss/set counters.
func (s *RedisStore) GetStats() Stats {
	return s.stats.Snapshot()
}
