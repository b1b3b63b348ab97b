package export

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"

	"trackmap-desktop/internal/geo"
)

// RenderedTile is one subdivision's rendered buffer together with the
// geography it depicts. Whoever draws it into a larger canvas must Release
// it; at export zooms a single tile can run to tens of megapixels.
type RenderedTile struct {
	Image  *image.RGBA
	Bounds geo.Bounds
	Zoom   float64
}

// Release drops the pixel buffer
func (t *RenderedTile) Release() {
	t.Image = nil
}

// GridLayout is the row/column arrangement of a subdivision set, recovered
// purely from shared boundary coordinates
type GridLayout struct {
	Rows         int
	Columns      int
	Subdivisions []geo.Bounds // row-major: north to south, west to east
}

// CalculateGridLayout arranges subdivisions into their grid positions by
// matching shared boundary values. The subdivisions must come from a single
// planner call so boundaries compare bit-identical; render or slice order
// is irrelevant.
func CalculateGridLayout(subdivisions []geo.Bounds) (GridLayout, error) {
	if len(subdivisions) == 0 {
		return GridLayout{}, fmt.Errorf("no subdivisions to lay out")
	}
	if len(subdivisions) == 1 {
		return GridLayout{Rows: 1, Columns: 1, Subdivisions: subdivisions}, nil
	}

	latSet := make(map[float64]struct{})
	lngSet := make(map[float64]struct{})
	for _, s := range subdivisions {
		latSet[s.North] = struct{}{}
		latSet[s.South] = struct{}{}
		lngSet[s.West] = struct{}{}
		lngSet[s.East] = struct{}{}
	}

	lats := make([]float64, 0, len(latSet))
	for v := range latSet {
		lats = append(lats, v)
	}
	lngs := make([]float64, 0, len(lngSet))
	for v := range lngSet {
		lngs = append(lngs, v)
	}
	// North to south, west to east
	sort.Sort(sort.Reverse(sort.Float64Slice(lats)))
	sort.Float64s(lngs)

	rows := len(lats) - 1
	columns := len(lngs) - 1
	if rows*columns != len(subdivisions) {
		return GridLayout{}, fmt.Errorf("subdivisions do not form a full grid: %d cells for %dx%d", len(subdivisions), rows, columns)
	}

	rowFor := make(map[float64]int, rows)
	for i, lat := range lats[:rows] {
		rowFor[lat] = i
	}
	colFor := make(map[float64]int, columns)
	for i, lng := range lngs[:columns] {
		colFor[lng] = i
	}

	ordered := make([]geo.Bounds, len(subdivisions))
	seen := make([]bool, len(subdivisions))
	for _, s := range subdivisions {
		row, okRow := rowFor[s.North]
		col, okCol := colFor[s.West]
		if !okRow || !okCol {
			return GridLayout{}, fmt.Errorf("subdivision %+v does not align with the grid", s)
		}
		idx := row*columns + col
		if seen[idx] {
			return GridLayout{}, fmt.Errorf("two subdivisions map to grid cell %d,%d", row, col)
		}
		ordered[idx] = s
		seen[idx] = true
	}

	return GridLayout{Rows: rows, Columns: columns, Subdivisions: ordered}, nil
}

// StitchCanvases composites rendered tiles into one buffer of exactly
// width×height pixels covering totalBounds. Both edges of every tile are
// projected against the total NW corner and rounded in that shared pixel
// grid, so adjacent tiles always meet at the same column or row even when
// a tile's own rounded width disagrees by a pixel; such a tile is scaled
// into its snapped slot. Tiles may arrive in any order, and their buffers
// are released as they are drawn.
func StitchCanvases(tilesIn []*RenderedTile, totalBounds geo.Bounds, width, height int, zoom float64) (*image.RGBA, error) {
	if len(tilesIn) == 0 {
		return nil, fmt.Errorf("no tiles to stitch")
	}

	origin := geo.Project(totalBounds.NorthWest(), zoom)
	out := image.NewRGBA(image.Rect(0, 0, width, height))

	for _, tile := range tilesIn {
		if tile.Image == nil {
			return nil, fmt.Errorf("tile for %+v has no buffer", tile.Bounds)
		}
		nw := geo.Project(tile.Bounds.NorthWest(), zoom)
		se := geo.Project(tile.Bounds.SouthEast(), zoom)
		rect := image.Rect(
			int(math.Round(nw.X-origin.X)),
			int(math.Round(nw.Y-origin.Y)),
			int(math.Round(se.X-origin.X)),
			int(math.Round(se.Y-origin.Y)),
		)

		if rect.Dx() == tile.Image.Bounds().Dx() && rect.Dy() == tile.Image.Bounds().Dy() {
			draw.Draw(out, rect, tile.Image, image.Point{}, draw.Src)
		} else {
			xdraw.ApproxBiLinear.Scale(out, rect, tile.Image, tile.Image.Bounds(), xdraw.Src, nil)
		}
		tile.Release()
	}

	return out, nil
}
