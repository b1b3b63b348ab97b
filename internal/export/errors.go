package export

import (
	"errors"
	"fmt"

	"trackmap-desktop/internal/render"
)

// ValidationError rejects an export before any rendering starts
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// CompositeError reports that layer compositing could not proceed, e.g. a
// missing base layer
type CompositeError struct {
	Reason string
}

func (e *CompositeError) Error() string {
	return e.Reason
}

// EncodeError reports a failed raster-to-file encode
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Classify maps an export failure to a stable kind string used for
// analytics events and UI styling
func Classify(err error) string {
	var (
		validation *ValidationError
		tileLoad   *render.TileLoadError
		timeout    *render.TimeoutError
		composite  *CompositeError
		encode     *EncodeError
	)
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, render.ErrCancelled):
		return "cancelled"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &tileLoad):
		return "tile_load"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &composite):
		return "composite"
	case errors.As(err, &encode):
		return "encode"
	default:
		return "internal"
	}
}
