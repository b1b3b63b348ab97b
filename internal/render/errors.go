package render

import (
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is returned when a render is abandoned because the caller's
// context was cancelled. Distinct from a timeout so the UI can tell "you
// stopped it" from "the tile server went quiet".
var ErrCancelled = errors.New("render cancelled")

// TileLoadError reports a failed tile fetch. A single failed tile aborts
// the whole render; a composite with holes is worse than a visible failure.
type TileLoadError struct {
	Source string
	Z      int
	X      int
	Y      int
	Err    error
}

func (e *TileLoadError) Error() string {
	return fmt.Sprintf("tile load failed: %s/%d/%d/%d: %v", e.Source, e.Z, e.X, e.Y, e.Err)
}

func (e *TileLoadError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that an asynchronous render stage did not complete
// within its bound
type TimeoutError struct {
	Stage   string // "tile-load" or "vector-paint"
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not complete within %s", e.Stage, e.Timeout)
}
