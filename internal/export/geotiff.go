package export

import (
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"trackmap-desktop/internal/geo"
	"trackmap-desktop/pkg/geotiff"
)

const earthRadius = 6378137.0 // WGS84 semi-major axis, meters

// mercatorMeters converts a geographic position to EPSG:3857 meters.
func mercatorMeters(ll geo.LatLng) (x, y float64) {
	x = earthRadius * ll.Lng * math.Pi / 180
	y = earthRadius * math.Log(math.Tan(math.Pi/4+ll.Lat*math.Pi/360))
	return x, y
}

// writeGeoTIFFSidecar saves img next to the PNG output as a
// georeferenced TIFF covering bounds at the given zoom.
func writeGeoTIFFSidecar(path string, img image.Image, bounds geo.Bounds, zoom float64, description string) error {
	originX, originY := mercatorMeters(bounds.NorthWest())
	metersPerPixel := 2 * math.Pi * earthRadius / geo.Scale(zoom)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sidecar: %w", err)
	}
	defer f.Close()

	ref := geotiff.WebMercator{
		OriginX:        originX,
		OriginY:        originY,
		MetersPerPixel: metersPerPixel,
		Description:    description,
		DateTime:       time.Now().Format("2006:01:02 15:04:05"),
	}
	if err := geotiff.Encode(f, img, ref); err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	return nil
}
