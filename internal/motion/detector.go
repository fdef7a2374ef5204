package motion

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// ErrUnknownKeypointMethod is returned when a keypoint method name is not
// one of the supported detectors.
var ErrUnknownKeypointMethod = fmt.Errorf("unknown keypoint method")

// GFTTParams configures the goodFeaturesToTrack detector.
type GFTTParams struct {
	MaxCorners  int
	Quality     float64
	MinDistance float64
}

// DefaultGFTTParams returns the detector parameters used when none are
// supplied: 200 corners, 0.01 quality, 30px minimum distance.
func DefaultGFTTParams() GFTTParams {
	return GFTTParams{MaxCorners: 200, Quality: 0.01, MinDistance: 30}
}

// Detector finds trackable keypoints in a grayscale frame.
type Detector interface {
	// Detect returns keypoint coordinates as a CV_32FC2 Nx1 Mat. The
	// caller owns the returned Mat.
	Detect(gray gocv.Mat) gocv.Mat
	Close() error
}

// NewDetector creates a keypoint detector by name. Supported methods are
// GFTT (default parameters per DefaultGFTTParams), FAST, ORB, BRISK and
// AKAZE; the name is case-insensitive.
func NewDetector(method string) (Detector, error) {
	switch strings.ToUpper(method) {
	case "GFTT":
		return NewGFTTDetector(DefaultGFTTParams()), nil
	case "FAST":
		d := gocv.NewFastFeatureDetector()
		return &featureDetector{name: "FAST", f2d: &d}, nil
	case "ORB":
		d := gocv.NewORB()
		return &featureDetector{name: "ORB", f2d: &d}, nil
	case "BRISK":
		d := gocv.NewBRISK()
		return &featureDetector{name: "BRISK", f2d: &d}, nil
	case "AKAZE":
		d := gocv.NewAKAZE()
		return &featureDetector{name: "AKAZE", f2d: &d}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKeypointMethod, method)
}

// NewGFTTDetector creates a goodFeaturesToTrack detector with the given
// parameters.
func NewGFTTDetector(params GFTTParams) Detector {
	return &gfttDetector{params: params}
}

type gfttDetector struct {
	params GFTTParams
}

func (d *gfttDetector) Detect(gray gocv.Mat) gocv.Mat {
	corners := gocv.NewMat()
	gocv.GoodFeaturesToTrack(gray, &corners, d.params.MaxCorners, d.params.Quality, d.params.MinDistance)
	return corners
}

func (d *gfttDetector) Close() error { return nil }

// feature2D is the subset of the GoCV feature detector types used here.
type feature2D interface {
	Detect(src gocv.Mat) []gocv.KeyPoint
	Close() error
}

// featureDetector adapts a GoCV features2d detector to the point-Mat
// layout the optical flow tracker consumes.
type featureDetector struct {
	name string
	f2d  feature2D
}

func (d *featureDetector) Detect(gray gocv.Mat) gocv.Mat {
	kps := d.f2d.Detect(gray)
	points := make([]gocv.Point2f, len(kps))
	for i, kp := range kps {
		points[i] = gocv.Point2f{X: float32(kp.X), Y: float32(kp.Y)}
	}
	return pointsToMat(points)
}

func (d *featureDetector) Close() error { return d.f2d.Close() }

// pointsToMat packs points into the CV_32FC2 Nx1 layout used for
// calcOpticalFlowPyrLK input.
func pointsToMat(points []gocv.Point2f) gocv.Mat {
	if len(points) == 0 {
		return gocv.NewMat()
	}
	m := gocv.NewMatWithSize(len(points), 1, gocv.MatTypeCV32FC2)
	for i, p := range points {
		m.SetFloatAt(i, 0, p.X)
		m.SetFloatAt(i, 1, p.Y)
	}
	return m
}
