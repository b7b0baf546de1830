// internal/store/rules_cache.go
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"outreach-engine/internal/common/logger"
	"outreach-engine/internal/engine"
	"outreach-engine/internal/models"
)

const rulesKeyPrefix = "rules:"

// CachedRulesStore wraps a RulesSource with a Redis cache-aside. Rules change
// rarely and are read on every analyzed reply, so a short TTL removes most of
// the per-reply database load. Cache failures are never surfaced: a broken
// Redis degrades to direct database reads.
type CachedRulesStore struct {
	source engine.RulesSource
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRulesStore(source engine.RulesSource, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedRulesStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRulesStore{
		source: source,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (c *CachedRulesStore) GetRules(ctx context.Context, userID string) (*models.RulesConfig, error) {
	key := rulesKeyPrefix + userID

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var rules models.RulesConfig
		if jsonErr := json.Unmarshal([]byte(cached), &rules); jsonErr == nil {
			return &rules, nil
		}
		// Corrupt entry: fall through to the source and overwrite it.
		c.logger.Warn("discarding unparseable cached rules", map[string]interface{}{
			"userId": userID,
		})
	} else if err != redis.Nil {
		c.logger.WithError(err).Warn("rules cache read failed", map[string]interface{}{
			"userId": userID,
		})
	}

	rules, err := c.source.GetRules(ctx, userID)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(rules); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.WithError(setErr).Warn("rules cache write failed", map[string]interface{}{
				"userId": userID,
			})
		}
	}

	return rules, nil
}

// Invalidate drops the cached rules for userID. Callers that update rules
// through the settings UI use this to make changes visible before the TTL
// expires.
func (c *CachedRulesStore) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, rulesKeyPrefix+userID).Err()
}
