package export

import (
	"fmt"

	"trackmap-desktop/internal/geo"
)

// Kind selects what an export produces.
type Kind string

const (
	KindCombined Kind = "combined" // base + lines + labels composited
	KindBase     Kind = "base"
	KindLines    Kind = "lines"
	KindLabels   Kind = "labels"
)

func (k Kind) valid() bool {
	switch k {
	case KindCombined, KindBase, KindLines, KindLabels:
		return true
	}
	return false
}

// needsTracks reports whether the kind cannot produce useful output
// without at least one visible track.
func (k Kind) needsTracks() bool {
	return k == KindCombined || k == KindLines
}

// DefaultMaxTileDim bounds a single render surface; larger requests are
// subdivided.
const DefaultMaxTileDim = 4000

// Config describes one export invocation. It is built once per request
// and never mutated while the export runs.
type Config struct {
	Kind        Kind
	Bounds      geo.Bounds
	Zoom        float64 // base and lines layers render at this zoom
	PreviewZoom float64 // fallback anchor for the label zoom

	MaxTileDim   int
	LabelDensity int     // label zoom offset from PreviewZoom; negative disables labels
	BaseSource   string  // registry key of the imagery source
	LineWeight   float64 // track stroke width before quality scaling
	Quality      float64 // scales line weight and the label zoom offset

	Stitched bool // one deliverable instead of one file per subdivision
	GeoTIFF  bool // also write a georeferenced TIFF next to each PNG

	BaseName  string
	OutputDir string
}

func (c Config) withDefaults() Config {
	if c.MaxTileDim <= 0 {
		c.MaxTileDim = DefaultMaxTileDim
	}
	if c.Quality <= 0 {
		c.Quality = 1
	}
	if c.LineWeight <= 0 {
		c.LineWeight = 3
	}
	return c
}

// labelZoom derives the zoom used for the label overlay. The density
// offset rides on the preview zoom, not the export zoom, so label text
// stays readable at print-scale exports.
func (c Config) labelZoom() float64 {
	return c.PreviewZoom + float64(c.LabelDensity)*c.Quality
}

func (c Config) validate() error {
	if !c.Kind.valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown export type %q", c.Kind)}
	}
	if err := c.Bounds.Validate(); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if c.Zoom <= 0 {
		return &ValidationError{Reason: "export zoom has not been computed yet"}
	}
	return nil
}

// Result summarizes a finished export.
type Result struct {
	Files    []string
	Parts    int // subdivision count, even when stitched into one file
	Stitched bool
	Width    int
	Height   int
}

// Callbacks report export progress. All fields are optional. Exactly
// one terminal callback fires per invocation: OnComplete, OnError, or
// OnSkipped for the designed no-op branches.
type Callbacks struct {
	OnSubdivisionsCalculated func(subdivisions []geo.Bounds)
	OnSubdivisionProgress    func(index, total int)
	OnSubdivisionDone        func(completed, total int)
	OnSkipped                func(reason string)
	OnComplete               func(result Result)
	OnError                  func(err error)
}

func (cb Callbacks) subdivisionsCalculated(subs []geo.Bounds) {
	if cb.OnSubdivisionsCalculated != nil {
		cb.OnSubdivisionsCalculated(subs)
	}
}

func (cb Callbacks) progress(index, total int) {
	if cb.OnSubdivisionProgress != nil {
		cb.OnSubdivisionProgress(index, total)
	}
}

func (cb Callbacks) done(completed, total int) {
	if cb.OnSubdivisionDone != nil {
		cb.OnSubdivisionDone(completed, total)
	}
}
