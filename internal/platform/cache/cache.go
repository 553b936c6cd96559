// Package cache is a small in process byte cache for read endpoints
package cache

import (
	"unsafe"

	"msgstats/internal/platform/logger"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
)

// Cache stores opaque values under string keys
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Clear()
}

// Config sizes the cache; SizeMB <= 0 disables it
type Config struct {
	SizeMB     int
	TTLSeconds int
}

// Free is a freecache backed Cache
type Free struct {
	cache *freecache.Cache
	ttl   int
}

// New returns a freecache Cache or a no op when disabled
func New(cfg Config) Cache {
	log := logger.Named("cache")
	if cfg.SizeMB <= 0 {
		log.Info().Msg("cache disabled")
		return noop{}
	}
	ttl := max(cfg.TTLSeconds, 1)
	log.Info().Int("size_mb", cfg.SizeMB).Int("ttl_s", ttl).Msg("cache initialized")
	return &Free{cache: freecache.NewCache(cfg.SizeMB * 1024 * 1024), ttl: ttl}
}

// keyBytes avoids a copy; freecache copies keys internally and never writes to them
func keyBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *Free) Get(key string) ([]byte, bool) {
	v, err := c.cache.Get(keyBytes(key))
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *Free) Set(key string, value []byte) {
	_ = c.cache.Set(keyBytes(key), value, c.ttl)
}

func (c *Free) Clear() { c.cache.Clear() }

type noop struct{}

func (noop) Get(string) ([]byte, bool) { return nil, false }
func (noop) Set(string, []byte)        {}
func (noop) Clear()                    {}

// GetJSON decodes a cached value into T
func GetJSON[T any](c Cache, key string) (T, bool) {
	var v T
	raw, ok := c.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

// SetJSON encodes v and stores it; encoding failures are dropped
func SetJSON(c Cache, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(key, raw)
}
