package geo

import "math"

// TileSize is the standard raster tile edge in pixels
const TileSize = 256

// Scale returns the pixel width of the whole world at the given zoom.
// Zoom is continuous: fractional zooms scale smoothly between tile levels,
// which is required because label layers render at previewZoom + offset
// while base layers render at the derived export zoom.
func Scale(zoom float64) float64 {
	return TileSize * math.Pow(2, zoom)
}

// Project converts a WGS84 coordinate to absolute pixel space at the given
// zoom, using the spherical Web Mercator projection (EPSG:3857) so pixel
// math matches what raster tile servers produce.
func Project(ll LatLng, zoom float64) Point {
	scale := Scale(zoom)
	latRad := ll.Lat * math.Pi / 180
	x := (ll.Lng + 180) / 360 * scale
	y := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * scale
	return Point{X: x, Y: y}
}

// Unproject is the inverse of Project
func Unproject(p Point, zoom float64) LatLng {
	scale := Scale(zoom)
	lng := p.X/scale*360 - 180
	n := math.Pi - 2*math.Pi*p.Y/scale
	lat := 180 / math.Pi * math.Atan(0.5*(math.Exp(n)-math.Exp(-n)))
	return LatLng{Lat: lat, Lng: lng}
}

// PixelDimensions returns the projected raster size of a bounding box at the
// given zoom, rounded to whole pixels. Degenerate boxes yield zero
// dimensions; callers must reject those rather than render.
func PixelDimensions(b Bounds, zoom float64) (width, height int) {
	nw := Project(b.NorthWest(), zoom)
	se := Project(b.SouthEast(), zoom)
	width = int(math.Round(se.X - nw.X))
	height = int(math.Round(se.Y - nw.Y))
	return width, height
}

// TileAt returns the integer tile coordinate containing a WGS84 point at an
// integer tile zoom, clamped to the valid range.
func TileAt(ll LatLng, zoom int) (x, y int) {
	n := 1 << zoom
	fx := (ll.Lng + 180) / 360 * float64(n)
	latRad := ll.Lat * math.Pi / 180
	fy := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * float64(n)
	x = clampInt(int(math.Floor(fx)), 0, n-1)
	y = clampInt(int(math.Floor(fy)), 0, n-1)
	return x, y
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
