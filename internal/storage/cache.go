package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/safevoice/incident-intake/internal/models"
)

// CachedStore layers a Redis read-through cache over a Store. Only the
// token lookup is cached: status polling is the one hot read, and the
// TTL bounds how stale a downstream status transition can look. Cache
// faults degrade to a direct store read.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
}

// Ensure CachedStore implements Store
var _ Store = (*CachedStore)(nil)

// NewCachedStore wraps inner with a Redis cache for token lookups.
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: inner, client: client, ttl: ttl}
}

// GetReportByToken serves from Redis when it can, falling back to the
// underlying store and populating the cache on the way out. Misses
// (ErrNotFound) are never cached: a token that does not resolve now
// may resolve after a concurrent insert commits.
func (s *CachedStore) GetReportByToken(ctx context.Context, token string) (*models.Report, error) {
	key := "report:token:" + token

	raw, err := s.client.Get(ctx, key).Result()
	if err == nil {
		var report models.Report
		if jsonErr := json.Unmarshal([]byte(raw), &report); jsonErr == nil {
			return &report, nil
		}
		logrus.Warnf("Discarding undecodable cache entry for %s", key)
	} else if err != redis.Nil {
		logrus.Warnf("Redis read failed for %s: %v", key, err)
	}

	report, err := s.Store.GetReportByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(report); jsonErr == nil {
		if setErr := s.client.Set(ctx, key, data, s.ttl).Err(); setErr != nil {
			logrus.Warnf("Redis write failed for %s: %v", key, setErr)
		}
	}

	return report, nil
}
