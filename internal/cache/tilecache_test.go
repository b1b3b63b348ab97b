package cache

import (
	"bytes"
	"testing"
)

func newTestCache(t *testing.T) *TileCache {
	t.Helper()
	c, err := NewTileCache(t.TempDir(), 10, 30)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKey(t *testing.T) {
	if got := Key("osm", 12, 2074, 1409); got != "osm:12:2074:1409" {
		t.Errorf("Key = %q", got)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)

	tile := []byte("fake png bytes")
	if err := c.Set("osm", 5, 10, 12, tile); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Get("osm", 5, 10, 12)
	if !ok {
		t.Fatal("tile not found after Set")
	}
	if !bytes.Equal(got, tile) {
		t.Errorf("got %q, want %q", got, tile)
	}

	if _, ok := c.Get("osm", 5, 10, 13); ok {
		t.Error("unknown tile must miss")
	}
	if _, ok := c.Get("carto-light", 5, 10, 12); ok {
		t.Error("source is part of the identity")
	}
}

func TestCacheStats(t *testing.T) {
	c := newTestCache(t)

	data := []byte("0123456789")
	c.Set("osm", 1, 0, 0, data)
	c.Set("osm", 1, 0, 1, data)

	entries, size, max := c.Stats()
	if entries != 2 {
		t.Errorf("entries = %d, want 2", entries)
	}
	if size != int64(2*len(data)) {
		t.Errorf("size = %d, want %d", size, 2*len(data))
	}
	if max != 10*1024*1024 {
		t.Errorf("max = %d", max)
	}
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(t)

	c.Set("osm", 3, 4, 5, []byte("data"))
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("osm", 3, 4, 5); ok {
		t.Error("tile survived Clear")
	}
	entries, size, _ := c.Stats()
	if entries != 0 || size != 0 {
		t.Errorf("after Clear: %d entries, %d bytes", entries, size)
	}
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := NewTileCache(dir, 10, 30)
	if err != nil {
		t.Fatal(err)
	}
	tile := []byte("persisted tile")
	c.Set("osm", 7, 1, 2, tile)
	c.Close()

	reopened, err := NewTileCache(dir, 10, 30)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("osm", 7, 1, 2)
	if !ok {
		t.Fatal("tile lost across reopen")
	}
	if !bytes.Equal(got, tile) {
		t.Errorf("got %q, want %q", got, tile)
	}
}
