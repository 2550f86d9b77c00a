package database

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"imgdup/imageprocessor"
	"imgdup/types"
)

// CachedProvider answers from the cache when a file is unchanged and
// falls through to the wrapped provider otherwise. Cache failures are
// logged and treated as misses.
type CachedProvider struct {
	inner  imageprocessor.Provider
	cache  *Cache
	hasher string
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProvider decorates inner with cache
func NewCachedProvider(inner imageprocessor.Provider, cache *Cache, hasher string, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cache,
		hasher: hasher,
		logger: logger,
	}
}

// Hash implements imageprocessor.Provider
func (p *CachedProvider) Hash(path string, settings types.HashSettings) (types.ImageInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return types.ImageInfo{}, &imageprocessor.IOError{Path: path, Err: err}
	}

	key := Key{Path: cacheKeyPath(path), Hasher: p.hasher, Settings: settings}
	info, ok, err := p.cache.Lookup(key, fileInfo.Size(), fileInfo.ModTime())
	switch {
	case err != nil:
		p.logger.Warn("cache lookup failed", "path", path, "error", err)
	case ok:
		p.hits.Add(1)
		p.logger.Debug("skipping unchanged image", "path", path)
		return info, nil
	}
	p.misses.Add(1)

	info, err = p.inner.Hash(path, settings)
	if err != nil {
		return types.ImageInfo{}, err
	}
	if err := p.cache.Store(key, info, fileInfo.ModTime()); err != nil {
		p.logger.Warn("cache store failed", "path", path, "error", err)
	}
	return info, nil
}

// Close closes the wrapped provider; the cache belongs to the caller
func (p *CachedProvider) Close() error {
	return p.inner.Close()
}

// Hits returns how many fingerprints were served from the cache
func (p *CachedProvider) Hits() int {
	return int(p.hits.Load())
}

// Misses returns how many fingerprints had to be computed
func (p *CachedProvider) Misses() int {
	return int(p.misses.Load())
}

func cacheKeyPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
