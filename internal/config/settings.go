package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CustomSource represents a user-added XYZ tile source
type CustomSource struct {
	Name        string `json:"name"`
	URL         string `json:"url"` // template with {z}/{x}/{y} placeholders
	Attribution string `json:"attribution,omitempty"`
	MaxZoom     int    `json:"maxZoom,omitempty"`
	MinZoom     int    `json:"minZoom,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// UserSettings represents persistent user preferences
type UserSettings struct {
	// Export settings
	ExportPath       string  `json:"exportPath"`
	MaxTileDimension int     `json:"maxTileDimension"`
	ExportQuality    float64 `json:"exportQuality"`
	LineWeight       float64 `json:"lineWeight"`
	LabelDensity     int     `json:"labelDensity"`
	StitchedOutput   bool    `json:"stitchedOutput"`
	GeoTIFFSidecar   bool    `json:"geoTiffSidecar"`

	// Cache settings
	CacheMaxSizeMB int `json:"cacheMaxSizeMB"`
	CacheTTLDays   int `json:"cacheTTLDays"`

	// Default map settings
	DefaultZoom      int     `json:"defaultZoom"`
	DefaultSource    string  `json:"defaultSource"`
	DefaultCenterLat float64 `json:"defaultCenterLat"`
	DefaultCenterLon float64 `json:"defaultCenterLon"`

	// Custom tile sources
	CustomSources []CustomSource `json:"customSources"`

	// UI preferences
	Theme           string `json:"theme"` // "light", "dark", "system"
	ShowCoordinates bool   `json:"showCoordinates"`
	AutoOpenExports bool   `json:"autoOpenExports"`
}

// DefaultSettings returns default user settings
func DefaultSettings() *UserSettings {
	homeDir, _ := os.UserHomeDir()
	exportPath := filepath.Join(homeDir, "Downloads", "trackmap")

	return &UserSettings{
		ExportPath:       exportPath,
		MaxTileDimension: 4000,
		ExportQuality:    1.0,
		LineWeight:       3.0,
		LabelDensity:     0,
		StitchedOutput:   true,
		GeoTIFFSidecar:   false,
		CacheMaxSizeMB:   250,
		CacheTTLDays:     30,
		DefaultZoom:      5,
		DefaultSource:    "carto-light",
		DefaultCenterLat: 48.8566, // Paris
		DefaultCenterLon: 2.3522,
		CustomSources:    []CustomSource{},
		Theme:            "system",
		ShowCoordinates:  false,
		AutoOpenExports:  true,
	}
}

// GetSettingsPath returns the OS-specific settings file path
func GetSettingsPath() string {
	homeDir, _ := os.UserHomeDir()

	baseDir := filepath.Join(homeDir, ".trackmap", "settings")
	os.MkdirAll(baseDir, 0755)

	return filepath.Join(baseDir, "settings.json")
}

// LoadSettings loads user settings from disk. Missing fields are filled
// from defaults so old settings files keep working across upgrades.
func LoadSettings() (*UserSettings, error) {
	settingsPath := GetSettingsPath()

	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	defaults := DefaultSettings()
	if settings.ExportPath == "" {
		settings.ExportPath = defaults.ExportPath
	}
	if settings.MaxTileDimension == 0 {
		settings.MaxTileDimension = defaults.MaxTileDimension
	}
	if settings.ExportQuality == 0 {
		settings.ExportQuality = defaults.ExportQuality
	}
	if settings.LineWeight == 0 {
		settings.LineWeight = defaults.LineWeight
	}
	if settings.CacheMaxSizeMB == 0 {
		settings.CacheMaxSizeMB = defaults.CacheMaxSizeMB
	}
	if settings.CacheTTLDays == 0 {
		settings.CacheTTLDays = defaults.CacheTTLDays
	}
	if settings.DefaultZoom == 0 {
		settings.DefaultZoom = defaults.DefaultZoom
	}
	if settings.DefaultSource == "" {
		settings.DefaultSource = defaults.DefaultSource
	}
	if settings.Theme == "" {
		settings.Theme = defaults.Theme
	}

	return &settings, nil
}

// SaveSettings saves user settings to disk
func SaveSettings(settings *UserSettings) error {
	settingsPath := GetSettingsPath()

	dir := filepath.Dir(settingsPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// ValidateCustomSource validates a custom source configuration
func ValidateCustomSource(source *CustomSource) error {
	if source.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if source.URL == "" {
		return fmt.Errorf("source URL is required")
	}
	return nil
}
