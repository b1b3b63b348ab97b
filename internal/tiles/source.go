package tiles

import (
	"fmt"
	"strconv"
	"strings"
)

// Source describes one raster XYZ tile source. A base source may name a
// companion label-only source; base sources without one cannot participate
// in label exports.
type Source struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	URL         string `json:"url"` // template with {z}/{x}/{y} placeholders
	Attribution string `json:"attribution"`
	MinZoom     int    `json:"minZoom"`
	MaxZoom     int    `json:"maxZoom"`
	Overlay     bool   `json:"overlay"`    // transparent overlay (labels) rather than opaque imagery
	LabelsKey   string `json:"labelsKey"`  // key of the companion label-only source, "" if none
}

// SupportsLabels reports whether a label overlay can be rendered on top of
// this base source
func (s *Source) SupportsLabels() bool {
	return s.LabelsKey != ""
}

// TileURL expands the URL template for one tile
func (s *Source) TileURL(z, x, y int) string {
	url := strings.Replace(s.URL, "{z}", strconv.Itoa(z), 1)
	url = strings.Replace(url, "{x}", strconv.Itoa(x), 1)
	url = strings.Replace(url, "{y}", strconv.Itoa(y), 1)
	return url
}

// builtinSources are the sources shipped with the app. Carto's positron
// split (nolabels base + only_labels overlay) is what makes independent
// label-layer exports possible.
var builtinSources = []*Source{
	{
		Key:         "osm",
		Name:        "OpenStreetMap",
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		MaxZoom:     19,
	},
	{
		Key:         "carto-light",
		Name:        "Carto Light",
		URL:         "https://basemaps.cartocdn.com/light_nolabels/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors © CARTO",
		MaxZoom:     20,
		LabelsKey:   "carto-light-labels",
	},
	{
		Key:         "carto-light-labels",
		Name:        "Carto Light Labels",
		URL:         "https://basemaps.cartocdn.com/light_only_labels/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors © CARTO",
		MaxZoom:     20,
		Overlay:     true,
	},
	{
		Key:         "carto-dark",
		Name:        "Carto Dark",
		URL:         "https://basemaps.cartocdn.com/dark_nolabels/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors © CARTO",
		MaxZoom:     20,
		LabelsKey:   "carto-dark-labels",
	},
	{
		Key:         "carto-dark-labels",
		Name:        "Carto Dark Labels",
		URL:         "https://basemaps.cartocdn.com/dark_only_labels/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors © CARTO",
		MaxZoom:     20,
		Overlay:     true,
	},
	{
		Key:         "esri-imagery",
		Name:        "Esri World Imagery",
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "© Esri",
		MaxZoom:     19,
		LabelsKey:   "esri-reference",
	},
	{
		Key:         "esri-reference",
		Name:        "Esri Reference Labels",
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/Reference/World_Boundaries_and_Places/MapServer/tile/{z}/{y}/{x}",
		Attribution: "© Esri",
		MaxZoom:     19,
		Overlay:     true,
	},
}

// Registry resolves source keys to sources
type Registry struct {
	sources map[string]*Source
	order   []string
}

// NewRegistry returns a registry preloaded with the builtin sources
func NewRegistry() *Registry {
	r := &Registry{sources: make(map[string]*Source)}
	for _, s := range builtinSources {
		r.sources[s.Key] = s
		r.order = append(r.order, s.Key)
	}
	return r
}

// Lookup returns the source for a key
func (r *Registry) Lookup(key string) (*Source, error) {
	s, ok := r.sources[key]
	if !ok {
		return nil, fmt.Errorf("unknown tile source: %s", key)
	}
	return s, nil
}

// BaseSources returns the non-overlay sources in registration order, for
// the layer picker UI
func (r *Registry) BaseSources() []*Source {
	var out []*Source
	for _, key := range r.order {
		if s := r.sources[key]; !s.Overlay {
			out = append(out, s)
		}
	}
	return out
}

// Add registers a user-supplied source
func (r *Registry) Add(s *Source) error {
	if s.Key == "" || s.URL == "" {
		return fmt.Errorf("source key and URL are required")
	}
	if _, exists := r.sources[s.Key]; exists {
		return fmt.Errorf("source %s already registered", s.Key)
	}
	r.sources[s.Key] = s
	r.order = append(r.order, s.Key)
	return nil
}
