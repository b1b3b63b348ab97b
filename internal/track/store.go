package track

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"trackmap-desktop/internal/geo"
)

// Store holds loaded tracks in memory and persists them as JSON in the
// settings directory, so tracks survive app restarts
type Store struct {
	mu      sync.RWMutex
	tracks  map[string]*Track
	order   []string
	path    string
	palette *Palette
}

// NewStore creates a store persisted at the given file path ("" disables
// persistence, used by tests)
func NewStore(path string) (*Store, error) {
	s := &Store{
		tracks:  make(map[string]*Track),
		path:    path,
		palette: NewPalette(),
	}
	if path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers a track, assigning an id and a palette color if unset
func (s *Store) Add(t *Track) *Track {
	s.mu.Lock()
	if t.ID == "" {
		t.ID = fmt.Sprintf("track_%d", time.Now().UnixNano())
	}
	if t.Color == "" {
		t.Color = s.palette.Next()
	}
	s.tracks[t.ID] = t
	s.order = append(s.order, t.ID)
	s.mu.Unlock()

	s.save()
	return t
}

// Get returns a track by id
func (s *Store) Get(id string) (*Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tracks[id]
	if !ok {
		return nil, fmt.Errorf("track not found: %s", id)
	}
	return t, nil
}

// List returns all tracks in insertion order
func (s *Store) List() []*Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Track, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tracks[id])
	}
	return out
}

// Visible returns the tracks currently toggled visible, in insertion order
func (s *Store) Visible() []*Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Track
	for _, id := range s.order {
		if t := s.tracks[id]; t.Visible {
			out = append(out, t)
		}
	}
	return out
}

// Remove deletes a track by id
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	if _, ok := s.tracks[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("track not found: %s", id)
	}
	delete(s.tracks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	return s.save()
}

// SetVisible toggles a track's visibility
func (s *Store) SetVisible(id string, visible bool) error {
	s.mu.Lock()
	t, ok := s.tracks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("track not found: %s", id)
	}
	t.Visible = visible
	s.mu.Unlock()

	return s.save()
}

// SetColor overrides a track's assigned color
func (s *Store) SetColor(id string, color string) error {
	s.mu.Lock()
	t, ok := s.tracks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("track not found: %s", id)
	}
	t.Color = color
	s.mu.Unlock()

	return s.save()
}

// VisibleBounds returns the union extent of all visible tracks with at
// least one point, and whether any such track exists
func (s *Store) VisibleBounds() (geo.Bounds, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bounds geo.Bounds
	found := false
	for _, id := range s.order {
		t := s.tracks[id]
		if !t.Visible || t.NumPoints() == 0 {
			continue
		}
		if !found {
			bounds = t.Bounds()
			found = true
		} else {
			bounds = bounds.Extend(t.Bounds())
		}
	}
	return bounds, found
}

// storeFile is the persisted JSON shape
type storeFile struct {
	Tracks []*Track `json:"tracks"`
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read track store: %w", err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse track store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range file.Tracks {
		s.tracks[t.ID] = t
		s.order = append(s.order, t.ID)
	}
	// Stored order is insertion order; ids embed a timestamp so sorting
	// restores it after the map round-trip
	sort.Strings(s.order)
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	file := storeFile{Tracks: make([]*Track, 0, len(s.order))}
	for _, id := range s.order {
		file.Tracks = append(file.Tracks, s.tracks[id])
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal track store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create track store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write track store: %w", err)
	}
	return nil
}
