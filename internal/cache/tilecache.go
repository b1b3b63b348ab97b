package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// TileCache is a disk-based tile cache with a ZXY directory layout.
// It persists across app restarts and is shared by interactive map browsing
// and the export pipeline, so an export of an area just browsed costs no
// extra tile fetches.
//
// Layout: {baseDir}/{source}/{z}/{x}/{y}.tile, bytes stored exactly as the
// tile server returned them. Metadata index: {baseDir}/cache_index.json.
type TileCache struct {
	baseDir  string
	maxSize  int64 // bytes
	currSize int64 // atomic
	ttl      time.Duration
	mu       sync.RWMutex
	metadata map[string]*TileMetadata
	evict    chan struct{}
	done     chan struct{}
}

// TileMetadata stores information about a cached tile
type TileMetadata struct {
	Key        string    `json:"key"`
	Source     string    `json:"source"`
	Z          int       `json:"z"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Size       int64     `json:"size"`
	AccessTime time.Time `json:"accessTime"`
	CreateTime time.Time `json:"createTime"`
}

// NewTileCache creates a tile cache rooted at baseDir
func NewTileCache(baseDir string, maxSizeMB int, ttlDays int) (*TileCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &TileCache{
		baseDir:  baseDir,
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		ttl:      time.Duration(ttlDays) * 24 * time.Hour,
		metadata: make(map[string]*TileMetadata),
		evict:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	if err := c.loadMetadata(); err != nil {
		if err := c.rebuildMetadata(); err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	go c.maintenanceWorker()

	return c, nil
}

// Key builds the cache key for a tile
func Key(source string, z, x, y int) string {
	return fmt.Sprintf("%s:%d:%d:%d", source, z, x, y)
}

// Get retrieves a tile's raw bytes from cache
func (c *TileCache) Get(source string, z, x, y int) ([]byte, bool) {
	key := Key(source, z, x, y)

	c.mu.RLock()
	meta, exists := c.metadata[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.ttl > 0 && time.Since(meta.CreateTime) > c.ttl {
		c.evictTile(key, meta)
		return nil, false
	}

	data, err := os.ReadFile(c.buildFilePath(meta))
	if err != nil {
		// File vanished out from under the index
		c.evictTile(key, meta)
		return nil, false
	}

	c.mu.Lock()
	meta.AccessTime = time.Now()
	c.mu.Unlock()

	return data, true
}

// Set stores a tile's raw bytes in cache
func (c *TileCache) Set(source string, z, x, y int, data []byte) error {
	key := Key(source, z, x, y)
	now := time.Now()
	meta := &TileMetadata{
		Key:        key,
		Source:     source,
		Z:          z,
		X:          x,
		Y:          y,
		Size:       int64(len(data)),
		AccessTime: now,
		CreateTime: now,
	}

	filePath := c.buildFilePath(meta)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	c.mu.Lock()
	if old, exists := c.metadata[key]; exists {
		atomic.AddInt64(&c.currSize, -old.Size)
	}
	c.metadata[key] = meta
	c.mu.Unlock()

	atomic.AddInt64(&c.currSize, meta.Size)

	if atomic.LoadInt64(&c.currSize) > c.maxSize {
		select {
		case c.evict <- struct{}{}:
		default:
		}
	}

	return nil
}

func (c *TileCache) buildFilePath(meta *TileMetadata) string {
	return filepath.Join(c.baseDir, meta.Source, fmt.Sprintf("%d", meta.Z),
		fmt.Sprintf("%d", meta.X), fmt.Sprintf("%d.tile", meta.Y))
}

func (c *TileCache) evictTile(key string, meta *TileMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	os.Remove(c.buildFilePath(meta))
	delete(c.metadata, key)
	atomic.AddInt64(&c.currSize, -meta.Size)
}

// maintenanceWorker evicts over-budget and expired tiles in the background
// until Close is called
func (c *TileCache) maintenanceWorker() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.evict:
			c.evictOldTiles()
		case <-ticker.C:
			c.evictExpiredTiles()
		}
	}
}

// evictOldTiles removes least recently used tiles until the cache is back
// under 80% of its budget
func (c *TileCache) evictOldTiles() {
	c.mu.Lock()
	defer c.mu.Unlock()

	currSize := atomic.LoadInt64(&c.currSize)
	if currSize <= c.maxSize {
		return
	}
	targetSize := c.maxSize * 8 / 10

	type entry struct {
		key  string
		meta *TileMetadata
	}
	entries := make([]entry, 0, len(c.metadata))
	for key, meta := range c.metadata {
		entries = append(entries, entry{key, meta})
	}
	// Oldest access first
	for i := 0; i < len(entries)-1; i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[i].meta.AccessTime.After(entries[j].meta.AccessTime) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	for _, e := range entries {
		if currSize <= targetSize {
			break
		}
		os.Remove(c.buildFilePath(e.meta))
		delete(c.metadata, e.key)
		atomic.AddInt64(&c.currSize, -e.meta.Size)
		currSize -= e.meta.Size
	}

	c.saveMetadataLocked()
}

func (c *TileCache) evictExpiredTiles() {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := 0
	for key, meta := range c.metadata {
		if now.Sub(meta.CreateTime) > c.ttl {
			os.Remove(c.buildFilePath(meta))
			delete(c.metadata, key)
			atomic.AddInt64(&c.currSize, -meta.Size)
			evicted++
		}
	}

	if evicted > 0 {
		c.saveMetadataLocked()
	}
}

func (c *TileCache) metadataPath() string {
	return filepath.Join(c.baseDir, "cache_index.json")
}

func (c *TileCache) loadMetadata() error {
	data, err := os.ReadFile(c.metadataPath())
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata map[string]*TileMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}
	c.metadata = metadata

	var total int64
	for _, meta := range metadata {
		total += meta.Size
	}
	atomic.StoreInt64(&c.currSize, total)

	return nil
}

// saveMetadataLocked writes the index via temp-file rename. Caller holds the
// lock (read or write).
func (c *TileCache) saveMetadataLocked() error {
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tempPath := c.metadataPath() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tempPath, c.metadataPath()); err != nil {
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}
	return nil
}

// rebuildMetadata reconstructs the index by scanning the cache directory
func (c *TileCache) rebuildMetadata() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metadata = make(map[string]*TileMetadata)
	var total int64

	err := filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".tile" {
			return nil
		}

		relPath, _ := filepath.Rel(c.baseDir, path)
		parts := strings.Split(relPath, string(os.PathSeparator))
		if len(parts) < 4 {
			return nil
		}

		source := parts[0]
		z, errZ := parseIntSafe(parts[1])
		x, errX := parseIntSafe(parts[2])
		y, errY := parseIntSafe(strings.TrimSuffix(parts[3], ".tile"))
		if errZ != nil || errX != nil || errY != nil {
			return nil
		}

		key := Key(source, z, x, y)
		c.metadata[key] = &TileMetadata{
			Key:        key,
			Source:     source,
			Z:          z,
			X:          x,
			Y:          y,
			Size:       info.Size(),
			AccessTime: info.ModTime(),
			CreateTime: info.ModTime(),
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan cache directory: %w", err)
	}

	atomic.StoreInt64(&c.currSize, total)
	return c.saveMetadataLocked()
}

func parseIntSafe(s string) (int, error) {
	var i int
	_, err := fmt.Sscanf(s, "%d", &i)
	return i, err
}

// Stats returns cache statistics
func (c *TileCache) Stats() (entries int, sizeBytes int64, maxBytes int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metadata), atomic.LoadInt64(&c.currSize), c.maxSize
}

// Clear removes all cached tiles
func (c *TileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, meta := range c.metadata {
		os.Remove(c.buildFilePath(meta))
	}
	c.metadata = make(map[string]*TileMetadata)
	atomic.StoreInt64(&c.currSize, 0)
	return c.saveMetadataLocked()
}

// Close stops the background maintenance worker and flushes the index
func (c *TileCache) Close() error {
	close(c.done)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.saveMetadataLocked()
}

// BaseDir returns the cache root directory
func (c *TileCache) BaseDir() string {
	return c.baseDir
}

// DefaultDir returns the OS-specific cache directory
func DefaultDir() string {
	homeDir, _ := os.UserHomeDir()

	switch goruntime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "trackmap-desktop", "tiles")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "trackmap-desktop", "cache", "tiles")
	default:
		cacheHome := os.Getenv("XDG_CACHE_HOME")
		if cacheHome == "" {
			cacheHome = filepath.Join(homeDir, ".cache")
		}
		return filepath.Join(cacheHome, "trackmap-desktop", "tiles")
	}
}
