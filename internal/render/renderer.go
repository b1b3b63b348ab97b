package render

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"time"

	"trackmap-desktop/internal/geo"
	"trackmap-desktop/internal/tiles"
	"trackmap-desktop/internal/track"
)

// Layer selects which of the three export layers a tile render produces
type Layer string

const (
	LayerBase   Layer = "base"
	LayerLines  Layer = "lines"
	LayerLabels Layer = "labels"
)

// Params carries the per-layer inputs of one tile render
type Params struct {
	Source     *tiles.Source  // base and labels layers
	Tracks     []*track.Track // lines layer; read-only
	LineWeight float64        // stroke width in pixels, already quality-scaled
}

// Options tune the renderer. Zero values take the defaults below.
type Options struct {
	Padding      float64       // working-area margin per side, fraction of target size
	Workers      int           // concurrent tile fetches
	TileTimeout  time.Duration // bound on the tile-load wait
	PaintTimeout time.Duration // bound on the vector-paint wait
	Settle       time.Duration // post-load delay before capture
	PollInterval time.Duration // probe poll period
}

const (
	// DefaultPadding keeps boundary antialiasing and seam artifacts away
	// from the cropped result
	DefaultPadding      = 0.15
	DefaultWorkers      = 10
	DefaultTileTimeout  = 60 * time.Second
	DefaultPaintTimeout = 30 * time.Second
	DefaultSettle       = 300 * time.Millisecond
	DefaultPollInterval = 200 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.TileTimeout <= 0 {
		o.TileTimeout = DefaultTileTimeout
	}
	if o.PaintTimeout <= 0 {
		o.PaintTimeout = DefaultPaintTimeout
	}
	if o.Settle <= 0 {
		o.Settle = DefaultSettle
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Renderer renders one export layer for one geographic box at one zoom into
// a pixel-exact buffer, using the padded-render-then-crop strategy
type Renderer struct {
	fetcher TileFetcher
	opts    Options
}

// NewRenderer creates a renderer over the given tile fetcher
func NewRenderer(fetcher TileFetcher, opts Options) *Renderer {
	return &Renderer{fetcher: fetcher, opts: opts.withDefaults()}
}

// RenderTile renders the requested layer for bounds at zoom. The returned
// buffer's dimensions exactly equal geo.PixelDimensions(bounds, zoom). A
// lines render with no intersecting tracks returns a transparent buffer,
// not an error.
func (r *Renderer) RenderTile(ctx context.Context, bounds geo.Bounds, layer Layer, zoom float64, params Params) (*image.RGBA, error) {
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid render bounds: %w", err)
	}
	w, h := geo.PixelDimensions(bounds, zoom)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("degenerate render bounds: %dx%d px", w, h)
	}

	padX := int(math.Ceil(float64(w) * r.opts.Padding))
	padY := int(math.Ceil(float64(h) * r.opts.Padding))
	surface := NewSurface(bounds.Center(), w+2*padX, h+2*padY, zoom)
	defer surface.Release()

	// The layer goroutines write into the surface; once the wait resolves
	// they are cancelled and drained before the deferred Release can drop
	// the buffer.
	workCtx, stopWork := context.WithCancel(ctx)
	defer stopWork()

	switch layer {
	case LayerBase, LayerLabels:
		if params.Source == nil {
			return nil, fmt.Errorf("%s layer requires a tile source", layer)
		}
		load := r.startTileLayer(workCtx, surface, params.Source)
		err := WaitReady(ctx, load, WaitOptions{
			Interval: r.opts.PollInterval,
			Timeout:  r.opts.TileTimeout,
			Settle:   r.opts.Settle,
			Events:   load.events,
			Stage:    "tile-load",
		})
		stopWork()
		<-load.drained
		if err != nil {
			return nil, err
		}

	case LayerLines:
		padded := bounds.Pad(r.opts.Padding)
		shapes := buildLineShapes(surface, params.Tracks, padded)
		if len(shapes) == 0 {
			// Designed no-op: nothing to draw here, but the caller may
			// legitimately composite this subdivision without lines
			log.Printf("[Render] No visible tracks intersect %+v, emitting empty lines layer", bounds)
			return image.NewRGBA(image.Rect(0, 0, w, h)), nil
		}
		paint := startVectorPaint(workCtx, surface, shapes, params.LineWeight)
		err := WaitReady(ctx, paint, WaitOptions{
			Interval: r.opts.PollInterval,
			Timeout:  r.opts.PaintTimeout,
			Events:   paint.events,
			Stage:    "vector-paint",
		})
		stopWork()
		<-paint.drained
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown layer type: %s", layer)
	}

	out := surface.Crop(bounds, w, h)
	if out == nil {
		return nil, fmt.Errorf("capture produced no buffer for %s layer", layer)
	}
	return out, nil
}
