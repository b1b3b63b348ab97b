package geo

import (
	"math"
	"testing"
)

// boundsForPixels builds a box centered on the equator whose projected
// size at zoom is close to w x h pixels.
func boundsForPixels(zoom float64, w, h int) Bounds {
	scale := Scale(zoom)
	cx, cy := scale/2, scale/2
	nw := Unproject(Point{X: cx - float64(w)/2, Y: cy - float64(h)/2}, zoom)
	se := Unproject(Point{X: cx + float64(w)/2, Y: cy + float64(h)/2}, zoom)
	return Bounds{North: nw.Lat, South: se.Lat, East: se.Lng, West: nw.Lng}
}

func TestCalculateSubdivisionsSingleton(t *testing.T) {
	b := boundsForPixels(10, 1000, 800)
	subs := CalculateSubdivisions(b, 10, 4000)
	if len(subs) != 1 {
		t.Fatalf("expected singleton, got %d subdivisions", len(subs))
	}
	if subs[0] != b {
		t.Errorf("singleton result must be the input bounds unchanged")
	}
}

func TestCalculateSubdivisionsLeafBound(t *testing.T) {
	const zoom, maxDim = 12.0, 400
	b := boundsForPixels(zoom, 900, 500)
	subs := CalculateSubdivisions(b, zoom, maxDim)
	if len(subs) < 3 {
		t.Fatalf("900x500 at maxDim 400 should need at least 3 leaves, got %d", len(subs))
	}
	for i, sub := range subs {
		w, h := PixelDimensions(sub, zoom)
		if w > maxDim || h > maxDim {
			t.Errorf("leaf %d is %dx%d, exceeds maxDim %d", i, w, h, maxDim)
		}
		if w <= 0 || h <= 0 {
			t.Errorf("leaf %d has degenerate size %dx%d", i, w, h)
		}
	}
}

func TestCalculateSubdivisionsCoverExactly(t *testing.T) {
	const zoom = 11.0
	b := boundsForPixels(zoom, 2200, 1700)
	subs := CalculateSubdivisions(b, zoom, 1000)

	// The union must span exactly the original box.
	union := subs[0]
	for _, sub := range subs[1:] {
		union = union.Extend(sub)
	}
	if union != b {
		t.Errorf("union of subdivisions %+v != original %+v", union, b)
	}

	// No overlap and no gap: the geographic areas must sum to the whole.
	var area float64
	for _, sub := range subs {
		area += (sub.North - sub.South) * (sub.East - sub.West)
	}
	want := (b.North - b.South) * (b.East - b.West)
	if math.Abs(area-want) > want*1e-12 {
		t.Errorf("leaf areas sum to %g, want %g", area, want)
	}
}

func TestCalculateSubdivisionsSplitsLongerAxis(t *testing.T) {
	const zoom = 12.0
	// Wide and short: only the horizontal axis needs splitting.
	b := boundsForPixels(zoom, 1500, 300)
	subs := CalculateSubdivisions(b, zoom, 800)
	if len(subs) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(subs))
	}
	for _, sub := range subs {
		if sub.North != b.North || sub.South != b.South {
			t.Errorf("latitude must not be split when only width exceeds the bound")
		}
	}
	if subs[0].East != subs[1].West {
		t.Errorf("siblings must share the split meridian: %f vs %f", subs[0].East, subs[1].West)
	}
}

func TestCalculateSubdivisionsDeterministic(t *testing.T) {
	const zoom = 13.0
	b := boundsForPixels(zoom, 9000, 5000)
	first := CalculateSubdivisions(b, zoom, 4000)
	second := CalculateSubdivisions(b, zoom, 4000)
	if len(first) < 3 {
		t.Fatalf("9000x5000 at maxDim 4000 should need at least 3 leaves, got %d", len(first))
	}
	if len(first) != len(second) {
		t.Fatalf("non-deterministic leaf count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("leaf %d differs between runs", i)
		}
	}
}
