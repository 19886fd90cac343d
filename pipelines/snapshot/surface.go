// Package snapshot renders page documents in a headless browser, highlights the
// keyword and captures a fixed-size crop around it.
package snapshot

import (
	"context"

	"highlight_reel/common"
)

// Viewport is the emulated device of a rendering surface.
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

// Surface is one live rendering surface. Calls must not interleave across pages.
type Surface interface {
	// Open loads url and waits for the load event.
	Open(ctx context.Context, url string) error
	// EvalBool evaluates a function expression with args and returns its boolean result.
	EvalBool(ctx context.Context, js string, args ...any) (bool, error)
	// BoundingBox returns the page-relative box of the first element matching selector,
	// or nil when nothing matches.
	BoundingBox(ctx context.Context, selector string) (*common.Region, error)
	// Screenshot returns PNG bytes of the clip in CSS pixels.
	Screenshot(ctx context.Context, clip common.Region) ([]byte, error)
	Close() error
}

// SurfaceFactory starts rendering surfaces.
type SurfaceFactory interface {
	NewSurface(ctx context.Context, vp Viewport) (Surface, error)
}
