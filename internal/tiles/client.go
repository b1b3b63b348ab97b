package tiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"time"

	_ "image/jpeg"
	_ "image/png"

	lru "github.com/hashicorp/golang-lru/v2"

	"trackmap-desktop/internal/cache"
	"trackmap-desktop/internal/ratelimit"
)

const (
	userAgent      = "trackmap-desktop/1.0 (GPS track map exporter)"
	requestTimeout = 30 * time.Second

	// Decoded-tile LRU capacity. 512 tiles of 256x256 RGBA is ~128 MB
	// worst case; in practice sources serve palettized PNGs well below
	// that.
	memCacheSize = 512
)

// Client fetches raster tiles with a two-level cache: a bounded in-memory
// LRU of decoded images over the shared persistent byte cache. Both the
// interactive map proxy and the export renderer go through it.
type Client struct {
	http    *http.Client
	disk    *cache.TileCache
	mem     *lru.Cache[string, image.Image]
	limiter *ratelimit.Handler
}

// NewClient creates a tile client. disk and limiter may be nil, in which
// case the corresponding layer is skipped.
func NewClient(disk *cache.TileCache, limiter *ratelimit.Handler) *Client {
	mem, _ := lru.New[string, image.Image](memCacheSize)
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		disk:    disk,
		mem:     mem,
		limiter: limiter,
	}
}

// ResetMemoryCache drops all decoded tiles. Exists so tests and low-memory
// situations can clear state deterministically.
func (c *Client) ResetMemoryCache() {
	c.mem.Purge()
}

// FetchTile returns the decoded tile image for one tile coordinate
func (c *Client) FetchTile(ctx context.Context, src *Source, z, x, y int) (image.Image, error) {
	key := cache.Key(src.Key, z, x, y)

	if img, ok := c.mem.Get(key); ok {
		return img, nil
	}

	data, err := c.FetchTileBytes(ctx, src, z, x, y)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s/%d/%d/%d: %w", src.Key, z, x, y, err)
	}

	c.mem.Add(key, img)
	return img, nil
}

// FetchTileBytes returns the raw encoded bytes for one tile coordinate,
// consulting the disk cache before the network
func (c *Client) FetchTileBytes(ctx context.Context, src *Source, z, x, y int) ([]byte, error) {
	if c.disk != nil {
		if data, found := c.disk.Get(src.Key, z, x, y); found {
			return data, nil
		}
	}

	if c.limiter != nil {
		if limited, wait := c.limiter.IsRateLimited(src.Key); limited {
			return nil, fmt.Errorf("source %s is rate limited, retry in %s", src.Key, wait.Round(time.Second))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.TileURL(z, x, y), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tile request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile %s/%d/%d/%d: %w", src.Key, z, x, y, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if c.limiter != nil && ratelimit.IsRateLimitStatus(resp.StatusCode) {
			c.limiter.Record(src.Key, resp.StatusCode)
		}
		return nil, fmt.Errorf("tile %s/%d/%d/%d: server returned %d", src.Key, z, x, y, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile body: %w", err)
	}

	if c.disk != nil {
		if err := c.disk.Set(src.Key, z, x, y, data); err != nil {
			log.Printf("[Tiles] Failed to cache tile %s/%d/%d/%d: %v", src.Key, z, x, y, err)
		}
	}

	return data, nil
}
