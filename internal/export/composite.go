package export

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// CompositeLayers stacks independently rendered layers into one buffer in
// painter's order: base, then lines, then labels. The base layer is
// mandatory. Labels rendered at a different zoom arrive with different
// pixel dimensions and are resampled to the base's size first; a labels
// buffer that already matches is drawn as-is, untouched. Inputs are
// consumed: callers drop their references after the call so the buffers
// can be reclaimed.
func CompositeLayers(base, lines, labels *image.RGBA) (*image.RGBA, error) {
	if base == nil {
		return nil, &CompositeError{Reason: "base layer is missing, cannot composite"}
	}

	bounds := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), base, bounds.Min, draw.Src)

	if lines != nil {
		draw.Draw(out, out.Bounds(), lines, lines.Bounds().Min, draw.Over)
	}

	if labels != nil {
		if labels.Bounds().Dx() == bounds.Dx() && labels.Bounds().Dy() == bounds.Dy() {
			draw.Draw(out, out.Bounds(), labels, labels.Bounds().Min, draw.Over)
		} else {
			resized := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
			xdraw.CatmullRom.Scale(resized, resized.Bounds(), labels, labels.Bounds(), xdraw.Src, nil)
			draw.Draw(out, out.Bounds(), resized, image.Point{}, draw.Over)
		}
	}

	return out, nil
}
