// Package motion estimates frame-to-frame camera motion from sparse
// optical flow using GoCV (OpenCV).
package motion

import (
	"gocv.io/x/gocv"
)

// Delta is the estimated rigid motion mapping the previous frame's content
// onto the current frame: x/y translation in pixels, rotation in radians.
type Delta struct {
	DX     float64
	DY     float64
	DAngle float64
}

// State carries detector state between estimation calls: the previous
// frame in grayscale and the keypoints detected on it (a CV_32FC2 Nx1
// Mat, the layout calcOpticalFlowPyrLK expects). It is owned by exactly
// one estimation loop and replaced wholesale after every call.
type State struct {
	PrevGray   gocv.Mat
	PrevPoints gocv.Mat
}

// NewState returns an empty State ready to be seeded.
func NewState() *State {
	return &State{
		PrevGray:   gocv.NewMat(),
		PrevPoints: gocv.NewMat(),
	}
}

// Close releases the Mats held by the state.
func (s *State) Close() {
	s.PrevGray.Close()
	s.PrevPoints.Close()
}

// replace swaps in a new gray frame and keypoint set, releasing the old ones.
func (s *State) replace(gray, points gocv.Mat) {
	s.PrevGray.Close()
	s.PrevPoints.Close()
	s.PrevGray = gray
	s.PrevPoints = points
}
