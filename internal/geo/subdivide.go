package geo

// CalculateSubdivisions splits a bounding box into pieces whose projected
// pixel size at the given zoom fits within maxDim on both axes. The split is
// always along the longer pixel dimension, at the geographic center, so
// halves share a meridian or parallel exactly and the leaves tile the parent
// with no gaps or overlaps. The result is deterministic for identical input.
func CalculateSubdivisions(b Bounds, zoom float64, maxDim int) []Bounds {
	width, height := PixelDimensions(b, zoom)
	if width <= maxDim && height <= maxDim {
		return []Bounds{b}
	}

	center := b.Center()
	var first, second Bounds
	if width > height {
		first = Bounds{North: b.North, South: b.South, East: center.Lng, West: b.West}
		second = Bounds{North: b.North, South: b.South, East: b.East, West: center.Lng}
	} else {
		first = Bounds{North: b.North, South: center.Lat, East: b.East, West: b.West}
		second = Bounds{North: center.Lat, South: b.South, East: b.East, West: b.West}
	}

	out := CalculateSubdivisions(first, zoom, maxDim)
	return append(out, CalculateSubdivisions(second, zoom, maxDim)...)
}
