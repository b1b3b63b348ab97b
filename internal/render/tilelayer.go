package render

import (
	"context"
	"image"
	"image/draw"
	"math"
	"sync"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"

	"trackmap-desktop/internal/geo"
	"trackmap-desktop/internal/tiles"
)

// TileFetcher supplies decoded raster tiles. Implemented by tiles.Client;
// tests substitute fakes.
type TileFetcher interface {
	FetchTile(ctx context.Context, src *tiles.Source, z, x, y int) (image.Image, error)
}

// tileCoord identifies one tile at the fetch zoom
type tileCoord struct {
	z, x, y int
}

// tileLoad tracks an in-flight tile layer fill. It is the ReadinessProbe
// for the tile-load wait: ready once every requested tile has been fetched
// and drawn, failed as soon as any single tile errors. drained closes when
// the collector goroutine has exited; the surface must stay alive until
// then.
type tileLoad struct {
	total   int64
	done    atomic.Int64
	mu      sync.Mutex
	err     error
	events  chan struct{}
	drained chan struct{}
}

func (l *tileLoad) fail(err error) {
	l.mu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.mu.Unlock()
	l.signal()
}

func (l *tileLoad) signal() {
	select {
	case l.events <- struct{}{}:
	default:
	}
}

// Ready implements ReadinessProbe
func (l *tileLoad) Ready() (bool, error) {
	l.mu.Lock()
	err := l.err
	l.mu.Unlock()
	if err != nil {
		return false, err
	}
	return l.done.Load() >= l.total, nil
}

// startTileLayer begins filling the surface with tiles from src and returns
// immediately; the caller waits on the returned probe. Tiles are fetched at
// the integer zoom nearest the surface zoom (clamped to the source's range)
// and scaled onto the surface when the two differ.
//
// Workers only fetch; a single collector goroutine does all drawing, so the
// surface buffer is never written concurrently. Cancelling ctx stops both
// fetching and drawing; the caller must wait on drained before releasing
// the surface.
func (r *Renderer) startTileLayer(ctx context.Context, surface *Surface, src *tiles.Source) *tileLoad {
	fetchZoom := int(math.Round(surface.Zoom()))
	if fetchZoom > src.MaxZoom {
		fetchZoom = src.MaxZoom
	}
	if fetchZoom < src.MinZoom {
		fetchZoom = src.MinZoom
	}
	// Pixel size of one fetched tile once drawn on the surface
	tileSpan := geo.TileSize * math.Pow(2, surface.Zoom()-float64(fetchZoom))

	coords := coveringTiles(surface, fetchZoom, tileSpan)

	load := &tileLoad{
		total:   int64(len(coords)),
		events:  make(chan struct{}, 1),
		drained: make(chan struct{}),
	}
	if len(coords) == 0 {
		close(load.drained)
		return load
	}

	type result struct {
		coord tileCoord
		img   image.Image
		err   error
	}

	results := make(chan result, len(coords))
	sem := semaphore.NewWeighted(int64(r.opts.Workers))

	var wg sync.WaitGroup
	for _, coord := range coords {
		wg.Add(1)
		go func(coord tileCoord) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- result{coord: coord, err: err}
				return
			}
			img, err := r.fetcher.FetchTile(ctx, src, coord.z, coord.x, coord.y)
			sem.Release(1)
			results <- result{coord: coord, img: img, err: err}
		}(coord)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collector: draws each fetched tile at its geography-derived offset.
	// After cancellation it only drains, so no result touches the surface
	// once the wait has resolved.
	go func() {
		defer close(load.drained)
		for res := range results {
			if ctx.Err() != nil {
				continue
			}
			if res.err != nil {
				load.fail(&TileLoadError{
					Source: src.Key,
					Z:      res.coord.z,
					X:      res.coord.x,
					Y:      res.coord.y,
					Err:    res.err,
				})
				continue
			}
			drawTile(surface, res.coord, res.img, tileSpan)
			load.done.Add(1)
			load.signal()
		}
	}()

	return load
}

// coveringTiles returns the tile coordinates at fetchZoom whose drawn
// footprint intersects the surface
func coveringTiles(surface *Surface, fetchZoom int, tileSpan float64) []tileCoord {
	img := surface.Image()
	if img == nil {
		return nil
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	// A tile (x, y) at the fetch zoom covers [x*tileSpan, (x+1)*tileSpan)
	// in the surface's absolute pixel space
	x0 := int(math.Floor(surface.origin.X / tileSpan))
	y0 := int(math.Floor(surface.origin.Y / tileSpan))
	x1 := int(math.Floor((surface.origin.X + float64(w) - 1) / tileSpan))
	y1 := int(math.Floor((surface.origin.Y + float64(h) - 1) / tileSpan))

	maxTile := (1 << fetchZoom) - 1
	var out []tileCoord
	for y := y0; y <= y1; y++ {
		if y < 0 || y > maxTile {
			continue
		}
		for x := x0; x <= x1; x++ {
			if x < 0 || x > maxTile {
				continue
			}
			out = append(out, tileCoord{z: fetchZoom, x: x, y: y})
		}
	}
	return out
}

// drawTile places one fetched tile onto the surface at its projected
// position, scaling when the fetch zoom differs from the surface zoom
func drawTile(surface *Surface, coord tileCoord, img image.Image, tileSpan float64) {
	dst := surface.Image()
	if dst == nil {
		return
	}

	x0 := float64(coord.x)*tileSpan - surface.origin.X
	y0 := float64(coord.y)*tileSpan - surface.origin.Y

	if math.Abs(tileSpan-geo.TileSize) < 1e-9 {
		// Fast path: same zoom, plain copy at integer offset
		at := image.Point{X: int(math.Round(x0)), Y: int(math.Round(y0))}
		rect := image.Rectangle{Min: at, Max: at.Add(image.Point{X: geo.TileSize, Y: geo.TileSize})}
		draw.Draw(dst, rect, img, image.Point{}, draw.Over)
		return
	}

	rect := image.Rect(
		int(math.Round(x0)),
		int(math.Round(y0)),
		int(math.Round(x0+tileSpan)),
		int(math.Round(y0+tileSpan)),
	)
	xdraw.ApproxBiLinear.Scale(dst, rect, img, img.Bounds(), xdraw.Over, nil)
}
