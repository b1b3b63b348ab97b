package render

import (
	"context"
	"sync/atomic"

	"github.com/fogleman/gg"

	"trackmap-desktop/internal/geo"
	"trackmap-desktop/internal/track"
)

// lineShape is one track's polyline scheduled for painting. Painted and
// segment state are what the vector-paint probe inspects: a shape counts as
// drawn only once its stroke produced at least one segment.
type lineShape struct {
	trackID  string
	color    string
	points   []geo.Point // surface-local pixels
	painted  atomic.Bool
	segments atomic.Int64
}

// vectorPaint tracks an in-flight lines layer. It is the ReadinessProbe for
// the vector-paint wait: all-or-nothing across the shape set, because a
// partially painted composite would silently lose tracks. drained closes
// when the painting goroutine has exited; the surface must stay alive
// until then.
type vectorPaint struct {
	shapes  []*lineShape
	events  chan struct{}
	drained chan struct{}
}

// Ready implements ReadinessProbe
func (p *vectorPaint) Ready() (bool, error) {
	for _, s := range p.shapes {
		if !s.painted.Load() || s.segments.Load() == 0 {
			return false, nil
		}
	}
	return true, nil
}

// buildLineShapes projects the visible tracks that intersect the padded
// bounds into surface pixel space. Tracks with fewer than two points have
// no stroke and are skipped.
func buildLineShapes(surface *Surface, tracks []*track.Track, padded geo.Bounds) []*lineShape {
	var shapes []*lineShape
	for _, t := range tracks {
		if !t.Visible || t.NumPoints() < 2 {
			continue
		}
		if !t.Bounds().Intersects(padded) {
			continue
		}

		points := make([]geo.Point, len(t.Line))
		for i, p := range t.Line {
			points[i] = surface.PixelFor(geo.LatLng{Lat: p[1], Lng: p[0]})
		}
		shapes = append(shapes, &lineShape{
			trackID: t.ID,
			color:   t.Color,
			points:  points,
		})
	}
	return shapes
}

// startVectorPaint strokes every shape onto the surface in a background
// goroutine and returns immediately; the caller waits on the returned
// probe. Shapes are painted sequentially into the one canvas, each marking
// itself painted with its segment count as it lands. The buffer is
// captured before the goroutine starts; cancelling ctx stops painting
// between shapes, and the caller must wait on drained before releasing
// the surface.
func startVectorPaint(ctx context.Context, surface *Surface, shapes []*lineShape, weight float64) *vectorPaint {
	paint := &vectorPaint{
		shapes:  shapes,
		events:  make(chan struct{}, 1),
		drained: make(chan struct{}),
	}
	img := surface.Image()
	if len(shapes) == 0 || img == nil {
		close(paint.drained)
		return paint
	}

	go func() {
		defer close(paint.drained)
		dc := gg.NewContextForRGBA(img)
		dc.SetLineCapRound()
		dc.SetLineJoinRound()
		dc.SetLineWidth(weight)

		for _, shape := range paint.shapes {
			if ctx.Err() != nil {
				return
			}
			dc.SetHexColor(shape.color)
			dc.MoveTo(shape.points[0].X, shape.points[0].Y)
			for _, p := range shape.points[1:] {
				dc.LineTo(p.X, p.Y)
			}
			dc.Stroke()

			shape.segments.Store(int64(len(shape.points) - 1))
			shape.painted.Store(true)
			select {
			case paint.events <- struct{}{}:
			default:
			}
		}
	}()

	return paint
}
