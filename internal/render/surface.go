package render

import (
	"image"
	"image/draw"
	"math"

	"trackmap-desktop/internal/geo"
)

// Surface is an off-screen canvas pinned to a geographic position: a pixel
// buffer plus the absolute projected-pixel coordinate of its top-left
// corner at a fixed zoom. One surface is alive per subdivision render; it
// must be released before the next begins, since padded high-zoom surfaces
// run to tens of megapixels.
type Surface struct {
	img    *image.RGBA
	zoom   float64
	origin geo.Point
}

// NewSurface creates a w×h canvas centered on the given coordinate at the
// given zoom
func NewSurface(center geo.LatLng, w, h int, zoom float64) *Surface {
	c := geo.Project(center, zoom)
	return &Surface{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		zoom: zoom,
		origin: geo.Point{
			X: c.X - float64(w)/2,
			Y: c.Y - float64(h)/2,
		},
	}
}

// Image returns the backing buffer, nil after Release
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Zoom returns the surface zoom level
func (s *Surface) Zoom() float64 {
	return s.zoom
}

// PixelFor converts a WGS84 coordinate to this surface's local pixel space
func (s *Surface) PixelFor(ll geo.LatLng) geo.Point {
	p := geo.Project(ll, s.zoom)
	return geo.Point{X: p.X - s.origin.X, Y: p.Y - s.origin.Y}
}

// Crop copies the region where bounds project on this surface into a fresh
// buffer of exactly w×h pixels, so the padded working buffer can be
// released independently of the result
func (s *Surface) Crop(bounds geo.Bounds, w, h int) *image.RGBA {
	if s.img == nil {
		return nil
	}

	nw := s.PixelFor(bounds.NorthWest())
	x0 := int(math.Round(nw.X))
	y0 := int(math.Round(nw.Y))

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), s.img, image.Point{X: x0, Y: y0}, draw.Src)
	return out
}

// Release zeroes the buffer reference so the backing pixels can be
// reclaimed even if the Surface value itself is still referenced
func (s *Surface) Release() {
	s.img = nil
}
