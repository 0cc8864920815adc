// Package registry looks up authoritative records of previously issued
// documents and caches the answer in Redis.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/models"
)

const (
	DefaultCacheTTL = 10 * time.Minute
	keyPrefix       = "registry:match:"
)

// Store is the read side of the registry table. FindRecord returns nil, nil
// when no record exists.
type Store interface {
	FindRecord(ctx context.Context, citizenID, documentType string) (*models.RegistryRecord, error)
}

// Result is the outcome of one lookup. LookupFailed means the store could not
// be reached and the caller should treat it as no match.
type Result struct {
	Matched      bool                   `json:"matched"`
	Record       *models.RegistryRecord `json:"record,omitempty"`
	LookupFailed bool                   `json:"-"`
}

type Matcher struct {
	store  Store
	cache  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

// NewMatcher builds a matcher. cache may be nil to disable caching.
func NewMatcher(store Store, cache redis.Cmdable, ttl time.Duration, log logger.Logger) *Matcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Matcher{store: store, cache: cache, ttl: ttl, logger: log}
}

func CacheKey(citizenID, documentType string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, citizenID, documentType)
}

// Match never returns an error: a failed lookup degrades to "no match".
func (m *Matcher) Match(ctx context.Context, citizenID, documentType string) Result {
	if citizenID == "" || documentType == "" {
		return Result{}
	}
	key := CacheKey(citizenID, documentType)

	if res, ok := m.fromCache(ctx, key); ok {
		metrics.RegistryLookups.WithLabelValues(hitLabel(res.Matched), "cache").Inc()
		return res
	}

	record, err := m.store.FindRecord(ctx, citizenID, documentType)
	if err != nil {
		lookupErr := apperrors.NewRegistryLookupError(err)
		m.logger.Warn("registry lookup failed, treating as no match", map[string]interface{}{
			"citizenId":    citizenID,
			"documentType": documentType,
			"error":        lookupErr.Error(),
		})
		metrics.RegistryLookups.WithLabelValues("error", "store").Inc()
		return Result{LookupFailed: true}
	}

	res := Result{Matched: record != nil, Record: record}
	metrics.RegistryLookups.WithLabelValues(hitLabel(res.Matched), "store").Inc()
	m.toCache(ctx, key, res)
	return res
}

// Invalidate drops the cached answer after the registry changes.
func (m *Matcher) Invalidate(ctx context.Context, citizenID, documentType string) error {
	if m.cache == nil {
		return nil
	}
	return m.cache.Del(ctx, CacheKey(citizenID, documentType)).Err()
}

func (m *Matcher) fromCache(ctx context.Context, key string) (Result, bool) {
	if m.cache == nil {
		return Result{}, false
	}
	raw, err := m.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.logger.Debug("registry cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, false
	}
	return res, true
}

func (m *Matcher) toCache(ctx context.Context, key string, res Result) {
	if m.cache == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := m.cache.Set(ctx, key, payload, m.ttl).Err(); err != nil {
		m.logger.Debug("registry cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func hitLabel(matched bool) string {
	if matched {
		return "hit"
	}
	return "miss"
}
