package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON-encodable values with an expiry
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedSourceOptions configures CachedSource
type CachedSourceOptions struct {
	TTL      time.Duration
	Location *time.Location
	Now      func() time.Time
	Logger   *logrus.Logger
}

// CachedSource decorates a StatsSource with a TTL cache. Cache failures are
// logged and fall through to the wrapped source.
type CachedSource struct {
	next     StatsSource
	cache    Cache
	ttl      time.Duration
	location *time.Location
	now      func() time.Time
	logger   *logrus.Logger

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewCachedSource wraps next with cache
func NewCachedSource(next StatsSource, cache Cache, opts CachedSourceOptions) *CachedSource {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &CachedSource{
		next:     next,
		cache:    cache,
		ttl:      opts.TTL,
		location: opts.Location,
		now:      opts.Now,
		logger:   opts.Logger,
		keys:     make(map[string]struct{}),
	}
}

func statsCacheKey(playerID string) string {
	return fmt.Sprintf("nhl:player:%s:stats", playerID)
}

func scheduleCacheKey(team string) string {
	return fmt.Sprintf("nhl:team:%s:schedule", team)
}

func gamesPlayedCacheKey(team string) string {
	return fmt.Sprintf("nhl:team:%s:games_played", team)
}

func (s *CachedSource) FetchCurrentStats(ctx context.Context, playerID string) (models.PlayerSeasonStats, error) {
	key := statsCacheKey(playerID)

	var cached models.PlayerSeasonStats
	if s.load(ctx, key, &cached) {
		return cached, nil
	}

	stats, err := s.next.FetchCurrentStats(ctx, playerID)
	if err != nil {
		return models.PlayerSeasonStats{}, err
	}
	s.store(ctx, key, stats)
	return stats, nil
}

// FetchRemainingSchedule serves the cached schedule minus any game that has
// started since it was stored
func (s *CachedSource) FetchRemainingSchedule(ctx context.Context, teamAbbrev string) (models.Schedule, error) {
	key := scheduleCacheKey(teamAbbrev)

	var cached []models.RemainingGame
	if s.load(ctx, key, &cached) {
		if s.location != nil {
			for i := range cached {
				cached[i].StartTime = cached[i].StartTime.In(s.location)
			}
		}
		return models.NewSchedule(cached).StartingAfter(s.now()), nil
	}

	schedule, err := s.next.FetchRemainingSchedule(ctx, teamAbbrev)
	if err != nil {
		return models.Schedule{}, err
	}
	s.store(ctx, key, schedule.Games())
	return schedule, nil
}

func (s *CachedSource) FetchTeamGamesPlayed(ctx context.Context, teamAbbrev string) (int, error) {
	key := gamesPlayedCacheKey(teamAbbrev)

	var cached int
	if s.load(ctx, key, &cached) {
		return cached, nil
	}

	gp, err := s.next.FetchTeamGamesPlayed(ctx, teamAbbrev)
	if err != nil {
		return 0, err
	}
	s.store(ctx, key, gp)
	return gp, nil
}

// Invalidate drops every entry this source has read or written
func (s *CachedSource) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.keys = make(map[string]struct{})
	s.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	s.logger.WithField("keys", len(keys)).Info("Stats cache invalidated")
	return nil
}

func (s *CachedSource) load(ctx context.Context, key string, dest interface{}) bool {
	s.remember(key)
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.WithField("key", key).Warnf("Cache read failed: %v", err)
	}
	return false
}

func (s *CachedSource) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.WithField("key", key).Warnf("Cache write failed: %v", err)
	}
}

// remember records keys seen through this source so Invalidate also clears
// entries written by an earlier process sharing the same Redis
func (s *CachedSource) remember(key string) {
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
}

// MemoryCache is an in-process Cache used when Redis is not configured
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty cache. now may be nil.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, expiresAt: c.now().Add(expiration)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	return nil
}
