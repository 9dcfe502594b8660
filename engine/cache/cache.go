// Package cache provides the content-addressed caches behind the streaming
// loader: fetched buffer payloads, decoded textures, and resolved materials.
// Buffer and texture entries are populated at most once per key — concurrent
// first references collapse into a single fetch — and no entry is ever evicted
// by a node unload. Teardown purges everything.
package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/strata3d/strata/engine/fetch"
	"github.com/strata3d/strata/engine/material"
	"github.com/strata3d/strata/engine/texture"
)

// BufferCache maps buffer URIs to fetched payloads. A miss triggers exactly
// one fetch through the backing Fetcher, even under concurrent first
// reference; a hit returns the cached payload with no I/O.
type BufferCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	flight  singleflight.Group
	fetcher fetch.Fetcher

	hits   int64
	misses int64
}

// NewBufferCache creates a BufferCache backed by the given fetcher.
//
// Parameters:
//   - fetcher: the byte-fetch capability
//
// Returns:
//   - *BufferCache: the cache
func NewBufferCache(fetcher fetch.Fetcher) *BufferCache {
	return &BufferCache{
		entries: make(map[string][]byte),
		fetcher: fetcher,
	}
}

// Get returns the payload for a URI, fetching it on first reference.
// Callers must not mutate the returned slice.
//
// Parameters:
//   - ctx: cancellation context for a first-reference fetch
//   - uri: the payload identifier
//
// Returns:
//   - []byte: the cached payload
//   - error: error if the fetch fails (nothing is cached on failure)
func (c *BufferCache) Get(ctx context.Context, uri string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.entries[uri]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return data, nil
	}

	// singleflight collapses concurrent first references so the fetcher sees
	// each key exactly once.
	v, err, _ := c.flight.Do(uri, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.entries[uri]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		payload, err := c.fetcher.FetchBytes(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("buffer %q: %w", uri, err)
		}

		c.mu.Lock()
		c.entries[uri] = payload
		c.misses++
		c.mu.Unlock()
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len returns the number of cached payloads.
//
// Returns:
//   - int: distinct cached buffer identifiers
func (c *BufferCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
//
// Returns:
//   - int64, int64: hits and misses
func (c *BufferCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Purge drops every cached payload. Called only at component shutdown.
func (c *BufferCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
}

// textureKey distinguishes linear (normal map) from color decodes of the same
// image identifier.
type textureKey struct {
	uri       string
	normalMap bool
}

// TextureCache maps (image URI, normal-map flag) to decoded textures.
type TextureCache struct {
	mu      sync.RWMutex
	entries map[textureKey]*texture.Texture
	flight  singleflight.Group
	fetcher fetch.Fetcher
	opts    texture.Options
}

// NewTextureCache creates a TextureCache backed by the given fetcher.
//
// Parameters:
//   - fetcher: the byte-fetch capability for image payloads
//   - opts: decode options applied to every texture (MaxDimension, padding);
//     the NormalMap field is overridden per lookup
//
// Returns:
//   - *TextureCache: the cache
func NewTextureCache(fetcher fetch.Fetcher, opts texture.Options) *TextureCache {
	return &TextureCache{
		entries: make(map[textureKey]*texture.Texture),
		fetcher: fetcher,
		opts:    opts,
	}
}

// Get returns the decoded texture for an image URI, fetching and decoding on
// first reference. A fetch failure surfaces as ErrResourceMissing so material
// resolution can fall back for that channel.
//
// Parameters:
//   - ctx: cancellation context for a first-reference fetch
//   - uri: the image identifier
//   - normalMap: true to decode with linear (normal map) color-space handling
//
// Returns:
//   - *texture.Texture: the decoded texture
//   - error: ErrResourceMissing if the image cannot be fetched, or a decode error
func (c *TextureCache) Get(ctx context.Context, uri string, normalMap bool) (*texture.Texture, error) {
	key := textureKey{uri: uri, normalMap: normalMap}

	c.mu.RLock()
	tex, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return tex, nil
	}

	flightKey := uri
	if normalMap {
		flightKey = uri + "\x00normal"
	}

	v, err, _ := c.flight.Do(flightKey, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		data, err := c.fetcher.FetchBytes(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w: %v", uri, texture.ErrResourceMissing, err)
		}

		opts := c.opts
		opts.NormalMap = normalMap
		decoded, err := texture.Decode(data, opts)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", uri, err)
		}

		c.mu.Lock()
		c.entries[key] = decoded
		c.mu.Unlock()
		return decoded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*texture.Texture), nil
}

// Len returns the number of cached textures.
//
// Returns:
//   - int: distinct (uri, normal-map) keys
func (c *TextureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every cached texture. Called only at component shutdown.
func (c *TextureCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[textureKey]*texture.Texture)
}

// MaterialCache maps material indices to resolved material descriptions.
// Entries are created lazily on first reference, are immutable, and are
// shared across every node referencing the same index. Node unload never
// touches this cache.
type MaterialCache struct {
	mu       sync.Mutex
	entries  map[int]*material.Resolved
	resolver material.Resolver
}

// NewMaterialCache creates a MaterialCache backed by the given resolver.
//
// Parameters:
//   - resolver: the material resolver
//
// Returns:
//   - *MaterialCache: the cache
func NewMaterialCache(resolver material.Resolver) *MaterialCache {
	return &MaterialCache{
		entries:  make(map[int]*material.Resolved),
		resolver: resolver,
	}
}

// Get returns the resolved material for an index, resolving and caching it on
// first reference. Negative and out-of-range indices share the fallback entry
// under index -1.
//
// Parameters:
//   - ctx: cancellation context for texture fetches during first resolution
//   - materialIndex: the material index, negative for "none"
//
// Returns:
//   - *material.Resolved: the shared resolved material
func (c *MaterialCache) Get(ctx context.Context, materialIndex int) *material.Resolved {
	if materialIndex < 0 {
		materialIndex = -1
	}

	c.mu.Lock()
	if cached, ok := c.entries[materialIndex]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	// Resolution can fetch textures; keep it outside the lock. A racing
	// duplicate resolution is harmless — first write wins below, and texture
	// fetches are deduplicated by the TextureCache underneath.
	resolved := c.resolver.Resolve(ctx, materialIndex)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.entries[materialIndex]; ok {
		return cached
	}
	c.entries[materialIndex] = resolved
	return resolved
}

// Len returns the number of resolved materials.
//
// Returns:
//   - int: distinct resolved material indices
func (c *MaterialCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every resolved material. Called only at component shutdown.
func (c *MaterialCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int]*material.Resolved)
}
