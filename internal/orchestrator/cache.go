// Caching wraps any Channel with a Redis-backed result cache so repeated
// identical channel queries (paginated browsing of the same search, the
// grid-search tool re-running a query across weight combinations) skip
// the downstream store round trip.
package orchestrator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/pkg/logger"
	"github.com/mvkhanh/keyframesearch/pkg/redis"
)

// cacheStore is the subset of *redis.Client a CachedChannel needs. Kept
// narrow so tests can fake it without a live Redis connection.
type cacheStore interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CachedChannel decorates a Channel with a TTL cache keyed on the
// channel's name plus the request fields that affect its ranking. A
// cache hit skips Rank (and therefore the downstream store/index call)
// entirely; a miss populates the cache after Rank returns.
type CachedChannel struct {
	Inner Channel
	Cache cacheStore
	TTL   time.Duration
}

func (c *CachedChannel) Name() string { return c.Inner.Name() }

func (c *CachedChannel) Active(req models.UnifiedRequest, embedding []float32) bool {
	return c.Inner.Active(req, embedding)
}

func (c *CachedChannel) Rank(ctx context.Context, req models.UnifiedRequest, embedding []float32) ([]uint64, error) {
	key := cacheKey(c.Inner.Name(), req, embedding)

	var cached []uint64
	if err := c.Cache.GetJSON(ctx, key, &cached); err == nil {
		logger.GetLogger().Debug("channel cache hit", map[string]interface{}{"channel": c.Inner.Name(), "key": key})
		return cached, nil
	} else if !redis.IsMiss(err) {
		logger.GetLogger().Warn("channel cache read failed, falling through to channel", map[string]interface{}{"channel": c.Inner.Name(), "error": err.Error()})
	}

	ids, err := c.Inner.Rank(ctx, req, embedding)
	if err != nil {
		return nil, err
	}

	if setErr := c.Cache.SetJSON(ctx, key, ids, c.TTL); setErr != nil {
		logger.GetLogger().Warn("channel cache write failed", map[string]interface{}{"channel": c.Inner.Name(), "error": setErr.Error()})
	}
	return ids, nil
}

// WrapChannelsWithCache replaces each of o's channels with a CachedChannel
// backed by store, sharing one TTL across all of them.
func WrapChannelsWithCache(o *Orchestrator, store cacheStore, ttl time.Duration) {
	wrapped := make([]Channel, len(o.Channels))
	for i, ch := range o.Channels {
		wrapped[i] = &CachedChannel{Inner: ch, Cache: store, TTL: ttl}
	}
	o.Channels = wrapped
}

// cacheKey hashes the request fields that influence a channel's ranking
// output (query, ASR and OCR text, exclude list, the embedding it was
// given, and for the vector channel the page window and oversample that
// set its top-k) so identical requests collide and differing ones never do.
func cacheKey(channel string, req models.UnifiedRequest, embedding []float32) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%v", req.Query, req.ASR, req.OCR, len(embedding), req.ExcludeIDs)
	if channel == "vector" {
		fmt.Fprintf(h, "|%d|%d|%d", req.Page, req.Size, req.Oversample)
	}
	if len(embedding) > 0 {
		data, _ := json.Marshal(embedding)
		h.Write(data)
	}
	return "channel:" + channel + ":" + hex.EncodeToString(h.Sum(nil))
}
