package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/posthog/posthog-go"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"trackmap-desktop/internal/cache"
	"trackmap-desktop/internal/config"
	"trackmap-desktop/internal/export"
	"trackmap-desktop/internal/geo"
	"trackmap-desktop/internal/ratelimit"
	"trackmap-desktop/internal/render"
	"trackmap-desktop/internal/tiles"
	"trackmap-desktop/internal/track"
)

// Linker flags
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// App is the Wails-bound application backend
type App struct {
	ctx context.Context

	settings     *config.UserSettings
	tileCache    *cache.TileCache
	limiter      *ratelimit.Handler
	client       *tiles.Client
	registry     *tiles.Registry
	tileServer   *tiles.Server
	renderer     *render.Renderer
	orchestrator *export.Orchestrator
	tracks       *track.Store

	mu        sync.Mutex
	exporting bool
	devMode   bool
	phClient  posthog.Client
}

// NewApp creates a new App application struct
func NewApp() *App {
	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	log.Printf("Settings loaded from: %s", config.GetSettingsPath())

	tileCache, err := cache.NewTileCache(cache.DefaultDir(), settings.CacheMaxSizeMB, settings.CacheTTLDays)
	if err != nil {
		log.Printf("Failed to initialize tile cache: %v", err)
		tileCache = nil // Continue without cache
	} else {
		log.Printf("Tile cache initialized at %s (max %d MB)", cache.DefaultDir(), settings.CacheMaxSizeMB)
	}

	limiter := ratelimit.NewHandler(nil)
	client := tiles.NewClient(tileCache, limiter)

	registry := tiles.NewRegistry()
	for _, cs := range settings.CustomSources {
		if !cs.Enabled {
			continue
		}
		if err := config.ValidateCustomSource(&cs); err != nil {
			log.Printf("Skipping custom source %q: %v", cs.Name, err)
			continue
		}
		src := &tiles.Source{
			Key:         "custom-" + cs.Name,
			Name:        cs.Name,
			URL:         cs.URL,
			Attribution: cs.Attribution,
			MinZoom:     cs.MinZoom,
			MaxZoom:     cs.MaxZoom,
		}
		if err := registry.Add(src); err != nil {
			log.Printf("Skipping custom source %q: %v", cs.Name, err)
		}
	}

	renderer := render.NewRenderer(client, render.Options{})

	homeDir, _ := os.UserHomeDir()
	trackStorePath := filepath.Join(homeDir, ".trackmap", "tracks.json")
	tracks, err := track.NewStore(trackStorePath)
	if err != nil {
		log.Printf("Failed to load track store: %v", err)
		tracks, _ = track.NewStore("")
	}

	var phClient posthog.Client
	if PostHogKey != "" {
		phConfig := posthog.Config{
			Endpoint: PostHogHost,
		}
		c, err := posthog.NewWithConfig(PostHogKey, phConfig)
		if err != nil {
			log.Printf("Failed to initialize PostHog: %v", err)
		} else {
			phClient = c
		}
	}

	a := &App{
		settings:   settings,
		tileCache:  tileCache,
		limiter:    limiter,
		client:     client,
		registry:   registry,
		tileServer: tiles.NewServer(client, registry),
		renderer:   renderer,
		tracks:     tracks,
		phClient:   phClient,
	}
	a.orchestrator = export.NewOrchestrator(renderer, registry)
	return a
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	os.MkdirAll(a.settings.ExportPath, 0755)

	a.limiter.SetOnRateLimit(func(ev ratelimit.Event) {
		wailsRuntime.EventsEmit(ctx, "rate-limit", ev)
	})
	a.limiter.SetOnRecovered(func(source string) {
		wailsRuntime.EventsEmit(ctx, "rate-limit-recovered", source)
	})

	go func() {
		if err := a.tileServer.Start(); err != nil {
			wailsRuntime.LogError(ctx, fmt.Sprintf("Tile server failed: %v", err))
		}
	}()
}

// TrackEvent sends an analytics event when telemetry is configured
func (a *App) TrackEvent(event string, props map[string]interface{}) {
	if a.phClient != nil {
		a.phClient.Enqueue(posthog.Capture{
			DistinctId: "backend_user",
			Event:      event,
			Properties: props,
		})
	}
}

// Shutdown cleans up resources
func (a *App) Shutdown(ctx context.Context) {
	if a.tileCache != nil {
		a.tileCache.Close()
	}
	if a.phClient != nil {
		a.phClient.Close()
	}
}

// GetAppVersion returns the current application version
func (a *App) GetAppVersion() string {
	return AppVersion
}

// GetTileServerURL returns the local tile proxy address for the map widget
func (a *App) GetTileServerURL() string {
	return a.tileServer.URL()
}

// GetSources lists the selectable base imagery sources
func (a *App) GetSources() []*tiles.Source {
	return a.registry.BaseSources()
}

// emitLog forwards a backend log line to the frontend console
func (a *App) emitLog(msg string) {
	log.Print(msg)
	if a.ctx != nil {
		wailsRuntime.EventsEmit(a.ctx, "log", msg)
	}
}

// ===================
// Track Management
// ===================

// LoadTrackFiles parses the given GPX/TCX files and adds them to the store
func (a *App) LoadTrackFiles(paths []string) ([]*track.Track, error) {
	var loaded []*track.Track
	for _, path := range paths {
		t, err := track.ParseFile(path)
		if err != nil {
			a.emitLog(fmt.Sprintf("[Tracks] failed to load %s: %v", filepath.Base(path), err))
			return loaded, fmt.Errorf("could not load %s: %w", filepath.Base(path), err)
		}
		a.tracks.Add(t)
		loaded = append(loaded, t)
		a.emitLog(fmt.Sprintf("[Tracks] loaded %q (%d points, %.1f km)", t.Name, t.NumPoints(), t.Length/1000))
	}
	a.TrackEvent("tracks_loaded", map[string]interface{}{"count": len(loaded)})
	return loaded, nil
}

// GetTracks returns all loaded tracks in insertion order
func (a *App) GetTracks() []*track.Track {
	return a.tracks.List()
}

// SetTrackVisibility toggles a track on the map and in exports
func (a *App) SetTrackVisibility(id string, visible bool) error {
	return a.tracks.SetVisible(id, visible)
}

// SetTrackColor changes a track's stroke color
func (a *App) SetTrackColor(id string, color string) error {
	return a.tracks.SetColor(id, color)
}

// RemoveTrack deletes a track from the store
func (a *App) RemoveTrack(id string) error {
	return a.tracks.Remove(id)
}

// VisibleExtent is the bounding box around all visible tracks
type VisibleExtent struct {
	Bounds geo.Bounds `json:"bounds"`
	Empty  bool       `json:"empty"`
}

// GetVisibleExtent returns the extent of all visible tracks
func (a *App) GetVisibleExtent() VisibleExtent {
	bounds, ok := a.tracks.VisibleBounds()
	return VisibleExtent{Bounds: bounds, Empty: !ok}
}
