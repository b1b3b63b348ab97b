package geo

import (
	"fmt"
	"math"
)

// Web Mercator latitude limits; tiles do not exist beyond these parallels
const (
	MinLat = -85.051129
	MaxLat = 85.051129
	MinLon = -180.0
	MaxLon = 180.0
)

// LatLng is a WGS84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point is a position in projected pixel space at some zoom level
type Point struct {
	X float64
	Y float64
}

// Bounds represents a geographic bounding box.
// Invariant: North > South, East > West; no antimeridian wraparound.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Validate checks the bounding box invariants
func (b Bounds) Validate() error {
	if b.South >= b.North {
		return fmt.Errorf("south (%f) must be less than north (%f)", b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("west (%f) must be less than east (%f)", b.West, b.East)
	}
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]: south=%f, north=%f", b.South, b.North)
	}
	if b.West < -180 || b.East > 180 {
		return fmt.Errorf("longitude out of range [-180, 180]: west=%f, east=%f", b.West, b.East)
	}
	return nil
}

// Center returns the geographic center of the box
func (b Bounds) Center() LatLng {
	return LatLng{
		Lat: (b.North + b.South) / 2,
		Lng: (b.East + b.West) / 2,
	}
}

// NorthWest returns the top-left corner
func (b Bounds) NorthWest() LatLng {
	return LatLng{Lat: b.North, Lng: b.West}
}

// SouthEast returns the bottom-right corner
func (b Bounds) SouthEast() LatLng {
	return LatLng{Lat: b.South, Lng: b.East}
}

// Contains reports whether the point lies within the box (edges inclusive)
func (b Bounds) Contains(ll LatLng) bool {
	return ll.Lat >= b.South && ll.Lat <= b.North &&
		ll.Lng >= b.West && ll.Lng <= b.East
}

// Intersects reports whether two boxes share any area (touching edges count)
func (b Bounds) Intersects(o Bounds) bool {
	return b.West <= o.East && o.West <= b.East &&
		b.South <= o.North && o.South <= b.North
}

// Extend returns the smallest box containing both b and o
func (b Bounds) Extend(o Bounds) Bounds {
	return Bounds{
		North: math.Max(b.North, o.North),
		South: math.Min(b.South, o.South),
		East:  math.Max(b.East, o.East),
		West:  math.Min(b.West, o.West),
	}
}

// Pad returns the box grown by the given fraction of its span on every side.
// Used for the padded-render-then-crop strategy; the result is clamped to
// valid Web Mercator latitudes.
func (b Bounds) Pad(fraction float64) Bounds {
	dLat := (b.North - b.South) * fraction
	dLng := (b.East - b.West) * fraction
	out := Bounds{
		North: b.North + dLat,
		South: b.South - dLat,
		East:  b.East + dLng,
		West:  b.West - dLng,
	}
	if out.North > MaxLat {
		out.North = MaxLat
	}
	if out.South < MinLat {
		out.South = MinLat
	}
	return out
}
