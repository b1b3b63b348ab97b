package geo

import (
	"math"
	"testing"
)

func TestProjectOrigin(t *testing.T) {
	p := Project(LatLng{Lat: 0, Lng: 0}, 0)
	if math.Abs(p.X-128) > 1e-9 || math.Abs(p.Y-128) > 1e-9 {
		t.Errorf("Project(0,0) at zoom 0 = (%f, %f), want (128, 128)", p.X, p.Y)
	}
}

func TestProjectUnprojectRoundTrip(t *testing.T) {
	points := []LatLng{
		{Lat: 0, Lng: 0},
		{Lat: 48.8566, Lng: 2.3522},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 64.1466, Lng: -21.9426},
		{Lat: -54.8019, Lng: -68.3030},
	}
	zooms := []float64{0, 3, 7.5, 12, 15.25}

	for _, ll := range points {
		for _, zoom := range zooms {
			got := Unproject(Project(ll, zoom), zoom)
			if math.Abs(got.Lat-ll.Lat) > 1e-6 || math.Abs(got.Lng-ll.Lng) > 1e-6 {
				t.Errorf("round trip at zoom %.2f: %+v -> %+v", zoom, ll, got)
			}
		}
	}
}

func TestScaleContinuous(t *testing.T) {
	if got := Scale(0); got != 256 {
		t.Errorf("Scale(0) = %f, want 256", got)
	}
	if got := Scale(2.5); math.Abs(got-256*math.Pow(2, 2.5)) > 1e-6 {
		t.Errorf("Scale(2.5) = %f", got)
	}
	// Doubling zoom by 1 doubles the world size.
	if got := Scale(10.5) / Scale(9.5); math.Abs(got-2) > 1e-9 {
		t.Errorf("Scale ratio across one zoom level = %f, want 2", got)
	}
}

func TestPixelDimensions(t *testing.T) {
	b := Bounds{North: 10, South: -10, East: 20, West: -20}

	w, h := PixelDimensions(b, 4)
	if w <= 0 || h <= 0 {
		t.Fatalf("expected positive dimensions, got %dx%d", w, h)
	}

	// One more zoom level doubles both axes, within rounding.
	w2, h2 := PixelDimensions(b, 5)
	if abs := math.Abs(float64(w2) - 2*float64(w)); abs > 1 {
		t.Errorf("width at zoom 5 = %d, want ~%d", w2, 2*w)
	}
	if abs := math.Abs(float64(h2) - 2*float64(h)); abs > 1 {
		t.Errorf("height at zoom 5 = %d, want ~%d", h2, 2*h)
	}
}

func TestPixelDimensionsDegenerate(t *testing.T) {
	b := Bounds{North: 10, South: 10, East: 20, West: -20}
	_, h := PixelDimensions(b, 8)
	if h != 0 {
		t.Errorf("zero-area bounds should project to zero height, got %d", h)
	}
}

func TestBoundsValidate(t *testing.T) {
	valid := Bounds{North: 10, South: 5, East: 20, West: 15}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid bounds rejected: %v", err)
	}

	invalid := []Bounds{
		{North: 5, South: 10, East: 20, West: 15},  // inverted latitude
		{North: 10, South: 5, East: 15, West: 20},  // inverted longitude
		{North: 10, South: 10, East: 20, West: 15}, // zero height
		{North: 95, South: 5, East: 20, West: 15},  // out of range
	}
	for _, b := range invalid {
		if err := b.Validate(); err == nil {
			t.Errorf("bounds %+v should be rejected", b)
		}
	}
}

func TestTileAt(t *testing.T) {
	x, y := TileAt(LatLng{Lat: 0, Lng: 0}, 1)
	if x != 1 || y != 1 {
		t.Errorf("TileAt(0,0, zoom 1) = (%d, %d), want (1, 1)", x, y)
	}
	x, y = TileAt(LatLng{Lat: 85, Lng: -179.9}, 3)
	if x != 0 || y != 0 {
		t.Errorf("TileAt far northwest at zoom 3 = (%d, %d), want (0, 0)", x, y)
	}
}
