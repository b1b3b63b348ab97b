// Package export drives the high-resolution tiled export pipeline:
// subdivision planning, per-subdivision layer rendering, compositing,
// stitching and file output.
package export

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"trackmap-desktop/internal/geo"
	"trackmap-desktop/internal/render"
	"trackmap-desktop/internal/tiles"
	"trackmap-desktop/internal/track"
	"trackmap-desktop/internal/utils/naming"
)

// LayerRenderer produces one pixel-exact layer tile for a geographic
// sub-box. Satisfied by render.Renderer.
type LayerRenderer interface {
	RenderTile(ctx context.Context, bounds geo.Bounds, layer render.Layer, zoom float64, params render.Params) (*image.RGBA, error)
}

// Orchestrator runs exports one at a time. Subdivisions are rendered
// sequentially so peak memory stays near one padded tile regardless of
// how large the requested area is.
type Orchestrator struct {
	renderer LayerRenderer
	registry *tiles.Registry

	now func() time.Time
}

func NewOrchestrator(renderer LayerRenderer, registry *tiles.Registry) *Orchestrator {
	return &Orchestrator{
		renderer: renderer,
		registry: registry,
		now:      time.Now,
	}
}

// Run executes one export. Progress, skip, completion and failure all
// surface through cb; exactly one terminal callback fires. The returned
// error mirrors OnError for callers that prefer error returns.
func (o *Orchestrator) Run(ctx context.Context, cfg Config, tracks []*track.Track, cb Callbacks) error {
	cfg = cfg.withDefaults()

	fail := func(err error) error {
		log.Printf("[Export] failed (%s): %v", Classify(err), err)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return err
	}

	// Validating.
	if err := cfg.validate(); err != nil {
		return fail(err)
	}
	visible := visibleTracks(tracks)
	if cfg.Kind.needsTracks() && len(visible) == 0 {
		return fail(&ValidationError{Reason: "no visible tracks to export"})
	}
	source, err := o.registry.Lookup(cfg.BaseSource)
	if err != nil {
		return fail(&ValidationError{Reason: err.Error()})
	}
	var labels *tiles.Source
	if cfg.LabelDensity >= 0 && source.SupportsLabels() {
		labels, err = o.registry.Lookup(source.LabelsKey)
		if err != nil {
			return fail(&ValidationError{Reason: err.Error()})
		}
	}
	if cfg.Kind == KindLabels {
		// Disabled labels are a designed no-op, not an error.
		if labels == nil {
			reason := "labels are disabled for this export"
			if cfg.LabelDensity >= 0 {
				reason = fmt.Sprintf("source %q has no label overlay", source.Key)
			}
			log.Printf("[Export] skipped: %s", reason)
			if cb.OnSkipped != nil {
				cb.OnSkipped(reason)
			}
			return nil
		}
	}

	planZoom := cfg.Zoom
	if cfg.Kind == KindLabels {
		planZoom = cfg.labelZoom()
	}
	totalWidth, totalHeight := geo.PixelDimensions(cfg.Bounds, planZoom)
	if totalWidth <= 0 || totalHeight <= 0 {
		return fail(&ValidationError{Reason: "export area projects to zero pixels"})
	}

	// Planning.
	subs := geo.CalculateSubdivisions(cfg.Bounds, planZoom, cfg.MaxTileDim)
	log.Printf("[Export] %s %dx%dpx at zoom %.2f, %d subdivision(s)", cfg.Kind, totalWidth, totalHeight, planZoom, len(subs))
	cb.subdivisionsCalculated(subs)

	stitched := cfg.Stitched && len(subs) > 1
	stamp := o.now()
	params := render.Params{
		Source:     source,
		Tracks:     visible,
		LineWeight: cfg.LineWeight * cfg.Quality,
	}

	var (
		retained []*RenderedTile
		written  []string
	)
	cleanup := func() {
		for _, t := range retained {
			t.Release()
		}
		retained = nil
		for _, path := range written {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Printf("[Export] could not remove partial output %s: %v", path, err)
			}
		}
		written = nil
	}

	// RenderingSubdivision(i), in planner order.
	for i, sub := range subs {
		if err := ctx.Err(); err != nil {
			cleanup()
			return fail(render.ErrCancelled)
		}
		cb.progress(i, len(subs))

		img, err := o.renderPart(ctx, cfg, sub, planZoom, params, labels)
		if err != nil {
			cleanup()
			return fail(err)
		}

		if stitched {
			retained = append(retained, &RenderedTile{Image: img, Bounds: sub, Zoom: planZoom})
		} else {
			name := naming.ExportFilename(cfg.BaseName, string(cfg.Kind), i+1, len(subs), stamp)
			path, err := o.writeOutputs(cfg, name, img, sub, planZoom)
			written = append(written, path)
			if err != nil {
				cleanup()
				return fail(err)
			}
		}
		cb.done(i+1, len(subs))
	}

	// Stitching.
	if stitched {
		composite, err := StitchCanvases(retained, cfg.Bounds, totalWidth, totalHeight, planZoom)
		retained = nil // consumed by the stitcher
		if err != nil {
			cleanup()
			return fail(&CompositeError{Reason: err.Error()})
		}
		name := naming.ExportFilename(cfg.BaseName, string(cfg.Kind), 1, 1, stamp)
		path, err := o.writeOutputs(cfg, name, composite, cfg.Bounds, planZoom)
		written = append(written, path)
		if err != nil {
			cleanup()
			return fail(err)
		}
	}

	// Complete.
	result := Result{
		Files:    written,
		Parts:    len(subs),
		Stitched: stitched,
		Width:    totalWidth,
		Height:   totalHeight,
	}
	log.Printf("[Export] complete: %d file(s), %d part(s)", len(result.Files), result.Parts)
	if cb.OnComplete != nil {
		cb.OnComplete(result)
	}
	return nil
}

// renderPart renders every layer the export kind calls for over one
// subdivision and composites them. Ownership of the returned buffer
// passes to the caller.
func (o *Orchestrator) renderPart(ctx context.Context, cfg Config, sub geo.Bounds, zoom float64, params render.Params, labels *tiles.Source) (*image.RGBA, error) {
	renderLabels := func() (*image.RGBA, error) {
		labelParams := params
		labelParams.Source = labels
		return o.renderer.RenderTile(ctx, sub, render.LayerLabels, cfg.labelZoom(), labelParams)
	}

	switch cfg.Kind {
	case KindBase:
		return o.renderer.RenderTile(ctx, sub, render.LayerBase, zoom, params)
	case KindLines:
		return o.renderer.RenderTile(ctx, sub, render.LayerLines, zoom, params)
	case KindLabels:
		labelParams := params
		labelParams.Source = labels
		return o.renderer.RenderTile(ctx, sub, render.LayerLabels, zoom, labelParams)
	case KindCombined:
		base, err := o.renderer.RenderTile(ctx, sub, render.LayerBase, zoom, params)
		if err != nil {
			return nil, err
		}
		lines, err := o.renderer.RenderTile(ctx, sub, render.LayerLines, zoom, params)
		if err != nil {
			return nil, err
		}
		var labelImg *image.RGBA
		if labels != nil {
			labelImg, err = renderLabels()
			if err != nil {
				return nil, err
			}
		}
		return CompositeLayers(base, lines, labelImg)
	}
	return nil, &ValidationError{Reason: fmt.Sprintf("unknown export type %q", cfg.Kind)}
}

// writeOutputs encodes img as PNG, plus the optional GeoTIFF sidecar.
// The PNG path is returned even on error so the caller can clean up a
// half-written file.
func (o *Orchestrator) writeOutputs(cfg Config, name string, img *image.RGBA, bounds geo.Bounds, zoom float64) (string, error) {
	path := filepath.Join(cfg.OutputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return path, &EncodeError{Path: path, Err: err}
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return path, &EncodeError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return path, &EncodeError{Path: path, Err: err}
	}
	log.Printf("[Export] wrote %s", path)

	if cfg.GeoTIFF {
		sidecar := filepath.Join(cfg.OutputDir, naming.GeoTIFFSidecarName(name))
		desc := fmt.Sprintf("%s export, zoom %.2f", cfg.Kind, zoom)
		if err := writeGeoTIFFSidecar(sidecar, img, bounds, zoom, desc); err != nil {
			os.Remove(sidecar)
			return path, &EncodeError{Path: sidecar, Err: err}
		}
		log.Printf("[Export] wrote %s", sidecar)
	}
	return path, nil
}

func visibleTracks(tracks []*track.Track) []*track.Track {
	var out []*track.Track
	for _, t := range tracks {
		if t != nil && t.Visible {
			out = append(out, t)
		}
	}
	return out
}
