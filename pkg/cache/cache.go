// Package cache stores scanned graph metadata and other derived results
// between runs.
//
// Backends share the [Cache] interface: [FileCache] for local CLI use,
// [RedisCache] and [MongoCache] for shared deployments, and [NullCache] to
// disable caching. [Open] picks one from configuration. Keys come from a
// [Keyer] so callers never build them by hand.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/matzehuels/neptune-utils/pkg/config"
	neperrors "github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/observability"
)

// ErrCacheMiss is returned by [GetJSON] when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend.
	Close() error
}

// Clearer is implemented by caches that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Open returns the cache backend selected by cfg.
func Open(ctx context.Context, cfg config.Cache) (Cache, error) {
	switch cfg.Backend {
	case config.CacheFile, "":
		dir := cfg.Dir
		if dir == "" {
			d, err := config.CacheDir()
			if err != nil {
				return nil, neperrors.Wrap(neperrors.ErrCodeInvalidConfig, err, "cache directory")
			}
			dir = d
		}
		return NewFileCache(dir)
	case config.CacheRedis:
		return NewRedisCache(ctx, cfg.RedisAddr)
	case config.CacheMongo:
		return NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.CacheNone:
		return NewNullCache(), nil
	default:
		return nil, neperrors.New(neperrors.ErrCodeInvalidConfig, "unknown cache backend: %q", cfg.Backend)
	}
}

// GetJSON decodes the value for key into v. It returns [ErrCacheMiss] when
// the key is absent. An entry that no longer decodes is deleted and
// reported as a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) error {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, keyType(key))
		return ErrCacheMiss
	}
	observability.Cache().OnCacheHit(ctx, keyType(key))
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return neperrors.Wrap(neperrors.ErrCodeInternal, err, "encode cache entry %s", key)
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	return nil
}

// keyType is the first key segment, e.g. "metadata" for
// "metadata:<hash>". Scope prefixes are skipped.
func keyType(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return "other"
	}
	return parts[len(parts)-2]
}
