package main

import (
	"context"
	"fmt"
	"log"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"trackmap-desktop/internal/export"
	"trackmap-desktop/internal/geo"
)

// ===================
// Export
// ===================

// ExportRequest is the frontend's export form
type ExportRequest struct {
	Type        string     `json:"type"` // combined, base, lines, labels
	Bounds      geo.Bounds `json:"bounds"`
	Zoom        float64    `json:"zoom"`
	PreviewZoom float64    `json:"previewZoom"`
	BaseSource  string     `json:"baseSource"`
	BaseName    string     `json:"baseName"`
}

// ExportPreview tells the UI what an export would produce before it runs
type ExportPreview struct {
	Width        int `json:"width"`
	Height       int `json:"height"`
	Subdivisions int `json:"subdivisions"`
	Files        int `json:"files"`
}

func (a *App) exportConfig(req ExportRequest) export.Config {
	return export.Config{
		Kind:         export.Kind(req.Type),
		Bounds:       req.Bounds,
		Zoom:         req.Zoom,
		PreviewZoom:  req.PreviewZoom,
		MaxTileDim:   a.settings.MaxTileDimension,
		LabelDensity: a.settings.LabelDensity,
		BaseSource:   req.BaseSource,
		LineWeight:   a.settings.LineWeight,
		Quality:      a.settings.ExportQuality,
		Stitched:     a.settings.StitchedOutput,
		GeoTIFF:      a.settings.GeoTIFFSidecar,
		BaseName:     req.BaseName,
		OutputDir:    a.settings.ExportPath,
	}
}

// GetExportPreview reports the pixel size and file count an export would have
func (a *App) GetExportPreview(req ExportRequest) (ExportPreview, error) {
	if err := req.Bounds.Validate(); err != nil {
		return ExportPreview{}, err
	}
	if req.Zoom <= 0 {
		return ExportPreview{}, fmt.Errorf("zoom must be positive")
	}

	width, height := geo.PixelDimensions(req.Bounds, req.Zoom)
	maxDim := a.settings.MaxTileDimension
	if maxDim <= 0 {
		maxDim = export.DefaultMaxTileDim
	}
	subs := geo.CalculateSubdivisions(req.Bounds, req.Zoom, maxDim)

	files := len(subs)
	if a.settings.StitchedOutput {
		files = 1
	}
	return ExportPreview{
		Width:        width,
		Height:       height,
		Subdivisions: len(subs),
		Files:        files,
	}, nil
}

// ExportMap starts an export in the background. Progress and the single
// terminal outcome arrive as frontend events.
func (a *App) ExportMap(req ExportRequest) error {
	a.mu.Lock()
	if a.exporting {
		a.mu.Unlock()
		return fmt.Errorf("an export is already running")
	}
	a.exporting = true
	a.mu.Unlock()

	cfg := a.exportConfig(req)
	tracks := a.tracks.List()
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	cb := export.Callbacks{
		OnSubdivisionsCalculated: func(subs []geo.Bounds) {
			wailsRuntime.EventsEmit(a.ctx, "export-subdivisions", len(subs))
		},
		OnSubdivisionProgress: func(index, total int) {
			wailsRuntime.EventsEmit(a.ctx, "export-progress", map[string]int{
				"index": index,
				"total": total,
			})
		},
		OnSubdivisionDone: func(completed, total int) {
			wailsRuntime.EventsEmit(a.ctx, "export-stitched", map[string]int{
				"completed": completed,
				"total":     total,
			})
		},
		OnSkipped: func(reason string) {
			wailsRuntime.EventsEmit(a.ctx, "export-skipped", reason)
		},
		OnComplete: func(result export.Result) {
			wailsRuntime.EventsEmit(a.ctx, "export-complete", result)
			a.TrackEvent("export_complete", map[string]interface{}{
				"type":  req.Type,
				"parts": result.Parts,
			})
		},
		OnError: func(err error) {
			wailsRuntime.EventsEmit(a.ctx, "export-error", map[string]string{
				"message": err.Error(),
				"kind":    export.Classify(err),
			})
			a.TrackEvent("export_failed", map[string]interface{}{
				"type": req.Type,
				"kind": export.Classify(err),
			})
		},
	}

	go func() {
		defer func() {
			a.mu.Lock()
			a.exporting = false
			a.mu.Unlock()
		}()
		if err := a.orchestrator.Run(ctx, cfg, tracks, cb); err != nil {
			log.Printf("[App] export finished with error: %v", err)
		}
	}()
	return nil
}
