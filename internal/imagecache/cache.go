// Package imagecache memoizes icon payloads by URL.
package imagecache

import (
	"context"
	"errors"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCapacity bounds the number of cached icons
	DefaultCapacity = 512

	// knownFactor sizes the set of servable URLs relative to the capacity
	knownFactor = 8

	// fetchTimeout bounds one download, independent of the caller
	fetchTimeout = 15 * time.Second
)

// ErrUnknownURL is returned for URLs no fetched option referenced
var ErrUnknownURL = errors.New("imagecache: unknown url")

// Fetcher downloads the bytes behind a URL
type Fetcher interface {
	FetchImageData(ctx context.Context, url string) ([]byte, error)
}

// Cache is a concurrency-safe, size-bounded URL -> bytes store shared by
// all screens. Only URLs registered through Remember or Prefetch are
// downloaded. Concurrent loads of one key are collapsed; when two writers
// race the last one wins.
type Cache struct {
	entries *lru.Cache[string, []byte]
	known   *lru.Cache[string, struct{}]

	fetcher Fetcher
	group   singleflight.Group
}

// New creates an empty cache backed by fetcher holding at most capacity
// icons. A non-positive capacity uses DefaultCapacity.
func New(fetcher Fetcher, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, _ := lru.New[string, []byte](capacity)
	known, _ := lru.New[string, struct{}](capacity * knownFactor)
	return &Cache{
		entries: entries,
		known:   known,
		fetcher: fetcher,
	}
}

// Get returns cached bytes for key
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

// Set stores bytes for key, evicting the least recently used entry when full
func (c *Cache) Set(key string, data []byte) {
	c.entries.Add(key, data)
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Remember marks urls as servable
func (c *Cache) Remember(urls []string) {
	for _, url := range urls {
		if url != "" {
			c.known.Add(url, struct{}{})
		}
	}
}

// Known reports whether url was registered by a fetched option
func (c *Cache) Known(url string) bool {
	return c.known.Contains(url)
}

// Load returns cached bytes or downloads them. Unknown URLs and failures
// are reported as a miss; callers keep their placeholder.
func (c *Cache) Load(ctx context.Context, url string) ([]byte, bool) {
	data, err := c.Fetch(ctx, url)
	if err != nil {
		if !errors.Is(err, ErrUnknownURL) {
			log.Printf("Image cache: skipping %s: %v", url, err)
		}
		return nil, false
	}
	return data, true
}

// Fetch is Load with the reason of a miss
func (c *Cache) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" || !c.Known(url) {
		return nil, ErrUnknownURL
	}
	if data, ok := c.Get(url); ok {
		return data, nil
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		// The flight is shared, one caller going away must not fail the rest
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		data, err := c.fetcher.FetchImageData(fetchCtx, url)
		if err != nil {
			return nil, err
		}
		c.Set(url, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Prefetch registers urls and loads the missing ones in the background
func (c *Cache) Prefetch(ctx context.Context, urls []string) {
	c.Remember(urls)
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, ok := c.Get(url); ok {
			continue
		}
		go c.Load(ctx, url)
	}
}
