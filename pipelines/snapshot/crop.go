package snapshot

import (
	"math"

	"highlight_reel/common"
)

// CropWindow returns a width×height window centred on r, shifted so its top-left
// corner is never negative.
func CropWindow(r common.Region, width, height int) common.Region {
	cx, cy := r.Center()
	return common.Region{
		X:      math.Max(0, math.Floor(cx-float64(width)/2)),
		Y:      math.Max(0, math.Floor(cy-float64(height)/2)),
		Width:  float64(width),
		Height: float64(height),
	}
}
