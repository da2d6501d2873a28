// Package structure caches JSON documents fetched from the registry in
// time buckets.
//
// A document is stored as {dir}/{md5(url)}-{bucket}.json. While the current
// bucket's file exists it is served from disk; once the bucket rolls over,
// every older file for that URL is deleted before the document is fetched
// again, so at most one network round trip happens per URL per bucket and
// stale files never accumulate.
package structure

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/speakleash/pkg/speakleash/fetch"
	"github.com/jamesainslie/speakleash/pkg/speakleash/filestore"
	"github.com/jamesainslie/speakleash/pkg/speakleash/logging"
)

var logger = logging.Get("structure")

// Bucket selects the invalidation granularity of a cached document.
type Bucket int

const (
	// Hourly documents are refetched when the wall-clock hour changes.
	Hourly Bucket = iota

	// Daily documents are refetched when the date changes.
	Daily
)

// String returns the bucket name.
func (b Bucket) String() string {
	if b == Daily {
		return "daily"
	}
	return "hourly"
}

// Suffix returns the filename suffix of the bucket containing t,
// "-MM_DD_YY_HH" for Hourly and "-MM_DD_YY" for Daily.
func (b Bucket) Suffix(t time.Time) string {
	if b == Daily {
		return t.Format("-01_02_06")
	}
	return t.Format("-01_02_06_15")
}

// Cache serves registry documents from the replica directory.
type Cache struct {
	dir     string
	fetcher fetch.Fetcher
	now     func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now for bucket computation.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New returns a Cache storing documents in dir and fetching misses with f.
func New(dir string, f fetch.Fetcher, opts ...Option) *Cache {
	c := &Cache{
		dir:     dir,
		fetcher: f,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the directory holding cached documents.
func (c *Cache) Dir() string {
	return c.dir
}

// Key returns the cache key for url: the hex MD5 digest of the URL.
func Key(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Path returns the file that holds url for the current bucket.
func (c *Cache) Path(url string, b Bucket) string {
	return filepath.Join(c.dir, Key(url)+b.Suffix(c.now())+".json")
}

// Get returns the document at url, from disk when the current bucket is
// cached and from the registry otherwise. Persisting a fetched document is
// best effort: a write failure is logged and the document still returned.
func (c *Cache) Get(ctx context.Context, url string, b Bucket) (json.RawMessage, error) {
	if err := filestore.EnsureDir(c.dir); err != nil {
		logger.Warn("replica directory unavailable", "dir", c.dir, "error", err)
	}

	path := c.Path(url, b)

	var cached json.RawMessage
	err := filestore.LoadJSON(path, &cached)
	switch {
	case err == nil && !isEmpty(cached):
		logger.Debug("cache hit", "url", url, "path", path)
		return cached, nil
	case err != nil && !errors.Is(err, filestore.ErrNotExist):
		logger.Warn("discarding unreadable cache file", "path", path, "error", err)
	}

	c.purge(url)

	data, err := c.fetcher.GetJSON(ctx, url)
	if err != nil {
		logger.Error("fetching structure failed", "url", url, "error", err)
		return nil, fmt.Errorf("get structure %s: %w", url, err)
	}

	if err := filestore.SaveJSON(data, path); err != nil {
		logger.Warn("caching structure failed", "url", url, "path", path, "error", err)
	}
	return data, nil
}

// GetInto fetches url like Get and decodes the document into v.
func (c *Cache) GetInto(ctx context.Context, url string, b Bucket, v any) error {
	data, err := c.Get(ctx, url, b)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode structure %s: %w", url, err)
	}
	return nil
}

// purge removes every cached bucket of url. Errors are ignored.
func (c *Cache) purge(url string) {
	matches, err := filepath.Glob(filepath.Join(c.dir, Key(url)+"-*.json"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			logger.Debug("removed stale bucket", "path", m)
		}
	}
}

// isEmpty reports whether a cached document is null or an empty object or
// array. Such files are treated as misses.
func isEmpty(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
