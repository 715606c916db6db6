package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/infopanel/internal/canvas"
	"github.com/1broseidon/infopanel/internal/platform"
)

// Asset is the surface-side form of one item's image. Animated images carry
// one resource per frame.
type Asset struct {
	Frames []platform.Resource
	Delays []time.Duration

	// Path is the file the frames were decoded from.
	Path string
}

// FrameAt picks the frame to show at t for an animated asset.
func (a *Asset) FrameAt(t time.Time) platform.Resource {
	if len(a.Frames) == 0 {
		return nil
	}
	if len(a.Frames) == 1 || len(a.Delays) != len(a.Frames) {
		return a.Frames[0]
	}
	var total time.Duration
	for _, d := range a.Delays {
		total += d
	}
	if total <= 0 {
		return a.Frames[0]
	}
	off := time.Duration(t.UnixNano()) % total
	for i, d := range a.Delays {
		if off < d {
			return a.Frames[i]
		}
		off -= d
	}
	return a.Frames[len(a.Frames)-1]
}

// Release frees every frame. All frames are attempted even if some fail.
func (a *Asset) Release() error {
	var errs []error
	for i, f := range a.Frames {
		if f == nil {
			continue
		}
		if err := f.Release(); err != nil {
			errs = append(errs, fmt.Errorf("frame %d: %w", i, err))
		}
	}
	a.Frames = nil
	return errors.Join(errs...)
}

// AssetCache holds per-item surface resources for one window. It is owned
// by exactly one controller and must be released before the window is
// destroyed. It also remembers which item images failed to load, so a
// missing file is not decoded again on every frame.
type AssetCache struct {
	mu      sync.Mutex
	entries map[string]*Asset
	failed  map[string]string // key -> path that failed
}

// NewAssetCache creates an empty cache.
func NewAssetCache() *AssetCache {
	return &AssetCache{
		entries: make(map[string]*Asset),
		failed:  make(map[string]string),
	}
}

// MarkFailed records that path could not be loaded for key.
func (c *AssetCache) MarkFailed(key, path string) {
	c.mu.Lock()
	c.failed[key] = path
	c.mu.Unlock()
}

// Failed reports whether path already failed to load for key. A different
// path for the same key is tried again.
func (c *AssetCache) Failed(key, path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.failed[key]
	return ok && p == path
}

// Get returns the asset cached for key.
func (c *AssetCache) Get(key string) (*Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[key]
	return a, ok
}

// Put stores a for key, releasing whatever was there before.
func (c *AssetCache) Put(key string, a *Asset) error {
	c.mu.Lock()
	old := c.entries[key]
	c.entries[key] = a
	c.mu.Unlock()
	if old != nil && old != a {
		return old.Release()
	}
	return nil
}

// Len returns the number of cached assets.
func (c *AssetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ReleaseTree walks items, including group children, releasing each item's
// cached asset and all of its frames. Entries whose item no longer exists are
// released afterwards. Every release is attempted; failures are returned, not
// raised, so teardown always completes. Load failures are forgotten too.
func (c *AssetCache) ReleaseTree(items []*canvas.Item) []error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*Asset)
	clear(c.failed)
	c.mu.Unlock()

	var errs []error
	release := func(key string) {
		a, ok := entries[key]
		if !ok {
			return
		}
		delete(entries, key)
		if err := a.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release %q: %w", key, err))
		}
	}

	canvas.Walk(items, func(it, _ *canvas.Item) bool {
		release(it.ID)
		return true
	})
	for key := range entries {
		release(key)
	}
	return errs
}
