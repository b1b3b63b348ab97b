package main

import (
	"fmt"
	"log"

	"trackmap-desktop/internal/config"
)

// ===================
// Settings Management
// ===================

// GetSettings returns current user settings
func (a *App) GetSettings() (*config.UserSettings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Return a copy to prevent external modifications
	settingsCopy := *a.settings
	return &settingsCopy, nil
}

// SaveSettings saves user settings to disk and updates app state
func (a *App) SaveSettings(settings *config.UserSettings) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if settings.ExportPath == "" {
		return fmt.Errorf("export path cannot be empty")
	}
	if settings.MaxTileDimension <= 0 {
		return fmt.Errorf("max tile dimension must be positive")
	}
	if settings.CacheMaxSizeMB <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if settings.CacheTTLDays <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if err := config.SaveSettings(settings); err != nil {
		return err
	}

	a.settings = settings

	// Note: Cache settings require app restart to take effect
	log.Printf("Settings saved. Cache settings will apply on next restart.")

	return nil
}

// GetSettingsPath returns the OS-specific settings file path
func (a *App) GetSettingsPath() string {
	return config.GetSettingsPath()
}

// ===================
// Cache Management
// ===================

// CacheStats reports tile cache usage to the settings UI
type CacheStats struct {
	Entries   int   `json:"entries"`
	SizeBytes int64 `json:"sizeBytes"`
	MaxBytes  int64 `json:"maxBytes"`
}

// GetCacheStats returns current tile cache usage
func (a *App) GetCacheStats() CacheStats {
	if a.tileCache == nil {
		return CacheStats{}
	}
	entries, size, max := a.tileCache.Stats()
	return CacheStats{Entries: entries, SizeBytes: size, MaxBytes: max}
}

// ClearTileCache empties the on-disk tile cache and the in-memory layer
func (a *App) ClearTileCache() error {
	if a.tileCache != nil {
		if err := a.tileCache.Clear(); err != nil {
			return err
		}
	}
	a.client.ResetMemoryCache()
	log.Printf("Tile cache cleared")
	return nil
}
