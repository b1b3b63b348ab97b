package track

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"trackmap-desktop/internal/geo"
)

// Track is one loaded GPS track. Points are stored as an orb.LineString
// (lng/lat order, orb's convention); the export pipeline reads tracks but
// never mutates them.
type Track struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Color   string         `json:"color"` // hex, e.g. "#fc4c02"
	Visible bool           `json:"visible"`
	Line    orb.LineString `json:"points"`
	Length  float64        `json:"length"` // meters
}

// NumPoints returns the point count
func (t *Track) NumPoints() int {
	return len(t.Line)
}

// Bounds returns the geographic extent of the track. Zero-point tracks
// return a zero box which fails Bounds.Validate, as callers expect.
func (t *Track) Bounds() geo.Bounds {
	if len(t.Line) == 0 {
		return geo.Bounds{}
	}
	b := t.Line.Bound()
	return geo.Bounds{
		North: b.Max[1],
		South: b.Min[1],
		East:  b.Max[0],
		West:  b.Min[0],
	}
}

// computeLength sums segment distances in meters
func computeLength(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += orbgeo.Distance(line[i-1], line[i])
	}
	return total
}
