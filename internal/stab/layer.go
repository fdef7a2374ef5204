package stab

import (
	"gocv.io/x/gocv"
)

// LayerFunc combines the newly rendered frame with the previously emitted
// output frame. It must return a new Mat the caller owns; both inputs stay
// owned by the pipeline.
type LayerFunc func(foreground, background gocv.Mat) gocv.Mat

// LayerBlend returns a layering function that alpha-blends the new frame
// over the previous output.
func LayerBlend(foregroundAlpha float64) LayerFunc {
	return func(foreground, background gocv.Mat) gocv.Mat {
		out := gocv.NewMat()
		gocv.AddWeighted(foreground, foregroundAlpha, background, 1-foregroundAlpha, 0, &out)
		return out
	}
}

// LayerOverlay lays the non-black pixels of the new frame over the
// previous output, so border fill does not erase earlier content.
func LayerOverlay(foreground, background gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(foreground, &gray, gocv.ColorBGRToGray)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, 0, 255, gocv.ThresholdBinary)

	out := background.Clone()
	foreground.CopyToWithMask(&out, mask)
	return out
}
