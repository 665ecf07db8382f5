// RootIndexCache is the bucket-notification config cache supplement
// from SPEC_FULL.md: a redis-backed, TTL'd front for Roots().
// FindCovering, so a bursty bucket-notification firehose does not
// re-run the covering-root scan on every single object event. Modeled
// directly on the teacher's satellite/eventing.ConfigCache, which
// wraps a buckets.DB lookup the same way for the same reason (a
// per-notification DB round trip is the dominant cost at scale).
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/repository"
)

// RootIndexCache caches FindCovering(bucket, key) lookups. Unlike the
// storage-client cache in internal/storageclient, entries expire: a
// root's base_path can be reconfigured, and a stale covering-root
// answer silently misroutes index writes.
type RootIndexCache struct {
	roots repository.Roots
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// NewRootIndexCache builds a cache wrapping roots, keyed by
// "bucket||key" prefix buckets (see cacheKey).
func NewRootIndexCache(roots repository.Roots, client *redis.Client, ttl time.Duration, log *zap.Logger) *RootIndexCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &RootIndexCache{roots: roots, redis: client, ttl: ttl, log: log}
}

// cacheKey buckets keys by their root-qualifying prefixes rather than
// caching per exact key, since FindCovering's answer only depends on
// which configured base_path prefixes the key: collapse to
// "bucket||parent-directory" so sibling objects share a cache entry.
// A key with no "/" is cached on its own.
func cacheKey(bucket, key string) string {
	dir := key
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			dir = key[:i]
			break
		}
	}
	return "rootidx:" + bucket + "||" + dir
}

// FindCovering returns the covering root for (bucket, key), consulting
// redis before falling back to the repository.
func (c *RootIndexCache) FindCovering(ctx context.Context, bucket, key string) (model.WorkspaceRoot, error) {
	ck := cacheKey(bucket, key)

	if raw, err := c.redis.Get(ctx, ck).Bytes(); err == nil {
		var root model.WorkspaceRoot
		if jsonErr := json.Unmarshal(raw, &root); jsonErr == nil {
			return root, nil
		}
	} else if err != redis.Nil {
		c.log.Warn("root index cache read failed, falling back to repository", zap.Error(err))
	}

	root, err := c.roots.FindCovering(ctx, bucket, key)
	if err != nil {
		return model.WorkspaceRoot{}, err
	}

	if raw, err := json.Marshal(root); err == nil {
		if err := c.redis.Set(ctx, ck, raw, c.ttl).Err(); err != nil {
			c.log.Warn("root index cache write failed", zap.Error(err))
		}
	}
	return root, nil
}

// Invalidate drops the cached entry for (bucket, key)'s prefix bucket,
// used after a root's base_path is reconfigured or a root is deleted.
func (c *RootIndexCache) Invalidate(ctx context.Context, bucket, key string) error {
	if err := c.redis.Del(ctx, cacheKey(bucket, key)).Err(); err != nil {
		return apierror.UpstreamError(err, "failed to invalidate root index cache entry")
	}
	return nil
}

// Close releases the underlying redis connection.
func (c *RootIndexCache) Close() error {
	return c.redis.Close()
}
