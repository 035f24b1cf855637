package imagecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubFetcher struct {
	calls atomic.Int32
	delay time.Duration
	fail  map[string]bool
}

func (f *stubFetcher) FetchImageData(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.fail[url] {
		return nil, errors.New("boom")
	}
	return []byte("png:" + url), nil
}

func TestLoadCachesResult(t *testing.T) {
	f := &stubFetcher{}
	c := New(f, 0)
	c.Remember([]string{"https://x/icon.png"})

	data, ok := c.Load(context.Background(), "https://x/icon.png")
	if !ok || string(data) != "png:https://x/icon.png" {
		t.Fatalf("Load() = %q, %v", data, ok)
	}
	if _, ok := c.Load(context.Background(), "https://x/icon.png"); !ok {
		t.Fatal("second Load() should hit")
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("fetcher called %d times, expected 1", n)
	}
}

func TestLoadRejectsUnknownURLs(t *testing.T) {
	f := &stubFetcher{}
	c := New(f, 0)

	for _, url := range []string{"", "http://10.0.0.1/admin", "https://x/never-listed.png"} {
		if _, err := c.Fetch(context.Background(), url); !errors.Is(err, ErrUnknownURL) {
			t.Errorf("Fetch(%q) error = %v, expected ErrUnknownURL", url, err)
		}
	}
	if n := f.calls.Load(); n != 0 {
		t.Errorf("fetcher called %d times for unknown urls", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, expected 0", c.Len())
	}
}

func TestLoadFailureIsSwallowed(t *testing.T) {
	f := &stubFetcher{fail: map[string]bool{"https://x/broken.png": true}}
	c := New(f, 0)
	c.Remember([]string{"https://x/broken.png"})

	data, ok := c.Load(context.Background(), "https://x/broken.png")
	if ok || data != nil {
		t.Errorf("failed Load() = %q, %v", data, ok)
	}
	if c.Len() != 0 {
		t.Error("failures must not be cached")
	}
}

func TestLoadSurvivesCanceledCaller(t *testing.T) {
	f := &stubFetcher{}
	c := New(f, 0)
	c.Remember([]string{"https://x/icon.png"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := c.Load(ctx, "https://x/icon.png"); !ok {
		t.Fatal("Load() should not inherit the caller's cancellation")
	}
}

func TestCacheIsBounded(t *testing.T) {
	f := &stubFetcher{}
	c := New(f, 4)

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://x/%d.png", i)
	}
	c.Remember(urls)
	for _, url := range urls {
		if _, ok := c.Load(context.Background(), url); !ok {
			t.Fatalf("Load(%s) failed", url)
		}
	}

	if n := c.Len(); n != 4 {
		t.Errorf("Len() = %d, expected capacity 4", n)
	}
	if _, ok := c.Get(urls[0]); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get(urls[9]); !ok {
		t.Error("newest entry should be cached")
	}
}

func TestConcurrentLoadsAndWrites(t *testing.T) {
	f := &stubFetcher{delay: 5 * time.Millisecond}
	c := New(f, 0)

	var xs []string
	for i := 0; i < 5; i++ {
		xs = append(xs, fmt.Sprintf("https://x/%d.png", i))
	}
	c.Remember(xs)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Load(context.Background(), xs[i%5])
		}(i)
		go func(i int) {
			defer wg.Done()
			c.Set(fmt.Sprintf("https://y/%d.png", i%5), []byte{byte(i)})
		}(i)
	}
	wg.Wait()

	if n := c.Len(); n != 10 {
		t.Errorf("Len() = %d, expected 10", n)
	}
	for _, key := range xs {
		if data, ok := c.Get(key); !ok || string(data) != "png:"+key {
			t.Errorf("Get(%s) = %q, %v", key, data, ok)
		}
	}
}

func TestPrefetch(t *testing.T) {
	f := &stubFetcher{}
	c := New(f, 0)
	c.Set("https://x/cached.png", []byte("cached"))

	c.Prefetch(context.Background(), []string{"", "https://x/cached.png", "https://x/new.png"})

	if !c.Known("https://x/new.png") || c.Known("") {
		t.Error("Prefetch should register non-empty urls")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.Get("https://x/new.png"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := c.Get("https://x/new.png"); !ok {
		t.Fatal("Prefetch should load missing urls")
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("fetcher called %d times, expected 1", n)
	}
}
