package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL     = 30 * time.Second
	defaultRedisTimeout = 250 * time.Millisecond
)

// NewRedisClient builds the cache client. Every dial, read and write is bounded
// by timeout and by the caller's context deadline.
func NewRedisClient(addr, password string, timeout time.Duration) *redis.Client {
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return redis.NewClient(&redis.Options{
		Addr:                  strings.TrimSpace(addr),
		Password:              password,
		DialTimeout:           timeout,
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
		ContextTimeoutEnabled: true,
		MaxRetries:            1,
	})
}

// CachedSessionStore serves GetSession from Redis when possible and falls
// back to the wrapped store. Misses in the wrapped store are never cached.
// Each Redis call is bounded by opTimeout within the request context.
type CachedSessionStore struct {
	inner     SessionStore
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
	logger    *zap.Logger
}

func NewCachedSessionStore(inner SessionStore, client *redis.Client, ttl, opTimeout time.Duration, logger *zap.Logger) *CachedSessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if opTimeout <= 0 {
		opTimeout = defaultRedisTimeout
	}
	return &CachedSessionStore{
		inner:     inner,
		client:    client,
		ttl:       ttl,
		opTimeout: opTimeout,
		logger:    logger.With(zap.String("component", "session_cache")),
	}
}

func (c *CachedSessionStore) GetSession(ctx context.Context, mentorID, sessionID string) (SessionRecord, error) {
	key := sessionCacheKey(mentorID, sessionID)
	log := c.logger.With(zap.String("mentor_id", mentorID), zap.String("session_id", sessionID))

	writeBack := true
	rec, ok, err := c.lookup(ctx, key)
	switch {
	case err != nil:
		log.Warn("redis get failed", zap.Error(err))
		observeCacheLookup("error")
		writeBack = false
	case ok && rec.MentorID == mentorID && rec.SessionID == sessionID:
		observeCacheLookup("hit")
		return rec, nil
	case ok:
		log.Warn("discarding cache entry for another session",
			zap.String("cached_mentor_id", rec.MentorID),
			zap.String("cached_session_id", rec.SessionID),
		)
		observeCacheLookup("error")
	default:
		observeCacheLookup("miss")
	}

	rec, err = c.inner.GetSession(ctx, mentorID, sessionID)
	if err != nil {
		return SessionRecord{}, err
	}
	if writeBack {
		c.store(ctx, key, rec, log)
	}
	return rec, nil
}

// lookup reports ok=false on a miss or a corrupt entry.
func (c *CachedSessionStore) lookup(ctx context.Context, key string) (SessionRecord, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(opCtx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return SessionRecord{}, false, nil
	}
	return rec, true, nil
}

func (c *CachedSessionStore) store(ctx context.Context, key string, rec SessionRecord, log *zap.Logger) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Warn("encode cache entry", zap.Error(err))
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.client.Set(opCtx, key, payload, c.ttl).Err(); err != nil {
		log.Warn("redis set failed", zap.Error(err))
	}
}

func (c *CachedSessionStore) GetBreakdown(ctx context.Context, mentorID, sessionID string) (SessionBreakdown, error) {
	return c.inner.GetBreakdown(ctx, mentorID, sessionID)
}

func (c *CachedSessionStore) ListSessions(ctx context.Context, mentorID string, limit int) ([]SessionRecord, error) {
	return c.inner.ListSessions(ctx, mentorID, limit)
}

func (c *CachedSessionStore) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

// sessionCacheKey escapes both ids so ":" inside an id cannot collide with the separator.
func sessionCacheKey(mentorID, sessionID string) string {
	return "session:" + url.QueryEscape(mentorID) + ":" + url.QueryEscape(sessionID)
}
