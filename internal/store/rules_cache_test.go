// internal/store/rules_cache_test.go
package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/internal/common/errors"
	"outreach-engine/internal/common/logger"
	"outreach-engine/internal/models"
)

// ==========================
// Test Doubles
// ==========================

type countingRulesSource struct {
	rules *models.RulesConfig
	err   error
	calls int
}

func (c *countingRulesSource) GetRules(ctx context.Context, userID string) (*models.RulesConfig, error) {
	c.calls++
	return c.rules, c.err
}

func cachedTestRules() *models.RulesConfig {
	return &models.RulesConfig{
		TriggerKeywords:        []string{"schedule"},
		MinConfidenceScore:     0.5,
		BookingMessageTemplate: "Calendar for {company_name}",
		QualificationQuestions: []string{"How big is your team?"},
	}
}

// ==========================
// redismock Tests
// ==========================

func TestCachedRules_CacheHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := &countingRulesSource{rules: cachedTestRules()}
	cache := NewCachedRulesStore(source, client, time.Minute, logger.NewNoOpLogger())

	payload, err := json.Marshal(cachedTestRules())
	require.NoError(t, err)
	mock.ExpectGet("rules:user-1").SetVal(string(payload))

	rules, err := cache.GetRules(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, cachedTestRules(), rules)
	assert.Zero(t, source.calls, "a cache hit must not touch the database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRules_CacheMissPopulates(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := &countingRulesSource{rules: cachedTestRules()}
	cache := NewCachedRulesStore(source, client, time.Minute, logger.NewNoOpLogger())

	payload, err := json.Marshal(cachedTestRules())
	require.NoError(t, err)
	mock.ExpectGet("rules:user-1").RedisNil()
	mock.ExpectSet("rules:user-1", payload, time.Minute).SetVal("OK")

	rules, err := cache.GetRules(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, cachedTestRules(), rules)
	assert.Equal(t, 1, source.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRules_RedisDownFallsThrough(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := &countingRulesSource{rules: cachedTestRules()}
	cache := NewCachedRulesStore(source, client, time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet("rules:user-1").SetErr(assert.AnError)
	payload, _ := json.Marshal(cachedTestRules())
	mock.ExpectSet("rules:user-1", payload, time.Minute).SetErr(assert.AnError)

	rules, err := cache.GetRules(context.Background(), "user-1")
	require.NoError(t, err, "cache failures must never surface to the caller")
	assert.Equal(t, cachedTestRules(), rules)
	assert.Equal(t, 1, source.calls)
}

func TestCachedRules_SourceErrorNotCached(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := &countingRulesSource{err: errors.NewRulesNotFoundError("user-1")}
	cache := NewCachedRulesStore(source, client, time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet("rules:user-1").RedisNil()

	rules, err := cache.GetRules(context.Background(), "user-1")
	assert.Nil(t, rules)
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRulesNotFound, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRules_CorruptEntryRefreshed(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := &countingRulesSource{rules: cachedTestRules()}
	cache := NewCachedRulesStore(source, client, time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet("rules:user-1").SetVal("{not json")
	payload, _ := json.Marshal(cachedTestRules())
	mock.ExpectSet("rules:user-1", payload, time.Minute).SetVal("OK")

	rules, err := cache.GetRules(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, cachedTestRules(), rules)
	assert.Equal(t, 1, source.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// miniredis Round-Trip Tests
// ==========================

func TestCachedRules_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingRulesSource{rules: cachedTestRules()}
	cache := NewCachedRulesStore(source, client, time.Minute, logger.NewNoOpLogger())

	ctx := context.Background()

	first, err := cache.GetRules(ctx, "user-1")
	require.NoError(t, err)
	second, err := cache.GetRules(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls, "second read should be served from Redis")

	// TTL expiry sends the next read back to the source.
	mr.FastForward(2 * time.Minute)
	_, err = cache.GetRules(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestCachedRules_Invalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingRulesSource{rules: cachedTestRules()}
	cache := NewCachedRulesStore(source, client, time.Minute, logger.NewNoOpLogger())

	ctx := context.Background()

	_, err := cache.GetRules(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "user-1"))

	_, err = cache.GetRules(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}
