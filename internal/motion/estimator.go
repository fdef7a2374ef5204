package motion

import (
	"log"
	"math"

	"gocv.io/x/gocv"
)

// minMatchedPoints is the fewest point pairs a rigid fit is attempted on.
// Below this the delta degrades to zero motion instead of failing.
const minMatchedPoints = 3

// Estimator produces per-frame-pair motion deltas by tracking keypoints
// between consecutive frames and fitting a rigid transform to the matches.
// The caller threads a *State through the calls; the estimator itself holds
// no per-stream state and may be reused across runs.
type Estimator struct {
	detector Detector
}

// NewEstimator creates an estimator using the named keypoint method.
func NewEstimator(method string) (*Estimator, error) {
	detector, err := NewDetector(method)
	if err != nil {
		return nil, err
	}
	return &Estimator{detector: detector}, nil
}

// NewEstimatorWithDetector creates an estimator around an existing
// detector, taking ownership of it.
func NewEstimatorWithDetector(d Detector) *Estimator {
	return &Estimator{detector: d}
}

// Close releases the underlying keypoint detector.
func (e *Estimator) Close() error {
	return e.detector.Close()
}

// Seed primes the state from the first frame of a stream. No delta is
// produced; the frame only becomes the reference for the next call. The
// caller keeps ownership of frame.
func (e *Estimator) Seed(frame gocv.Mat, st *State) {
	gray := gocv.NewMat()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	st.replace(gray, e.detector.Detect(gray))
}

// NextDelta estimates the motion between the state's previous frame and
// frame. Tracking uses pyramidal Lucas-Kanade optical flow on the stored
// keypoints; only pairs the tracker flags as matched feed the rigid fit.
// Too few matches or a failed fit yield a zero delta rather than an error,
// since optical flow is noisy and a dropped estimate should not stop the
// stream. The state is replaced with the current frame and freshly
// detected keypoints before returning.
func (e *Estimator) NextDelta(frame gocv.Mat, st *State) Delta {
	gray := gocv.NewMat()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	delta := Delta{}
	if !st.PrevPoints.Empty() {
		delta = e.trackAndFit(st, gray)
	} else {
		log.Printf("motion: no keypoints to track; assuming zero motion")
	}

	st.replace(gray, e.detector.Detect(gray))
	return delta
}

func (e *Estimator) trackAndFit(st *State, gray gocv.Mat) Delta {
	nextPts := gocv.NewMat()
	defer nextPts.Close()
	status := gocv.NewMat()
	defer status.Close()
	trackErr := gocv.NewMat()
	defer trackErr.Close()

	gocv.CalcOpticalFlowPyrLK(st.PrevGray, gray, st.PrevPoints, nextPts, &status, &trackErr)

	var prevMatched, curMatched []gocv.Point2f
	for i := 0; i < status.Rows(); i++ {
		if status.GetUCharAt(i, 0) == 0 {
			continue
		}
		prevMatched = append(prevMatched, gocv.Point2f{
			X: st.PrevPoints.GetFloatAt(i, 0),
			Y: st.PrevPoints.GetFloatAt(i, 1),
		})
		curMatched = append(curMatched, gocv.Point2f{
			X: nextPts.GetFloatAt(i, 0),
			Y: nextPts.GetFloatAt(i, 1),
		})
	}

	delta, ok := FitRigid(prevMatched, curMatched)
	if !ok {
		log.Printf("motion: rigid fit degraded to zero delta (%d matched keypoints)", len(curMatched))
	}
	return delta
}

// FitRigid estimates the rigid (rotation + translation) transform mapping
// prev onto cur. It reports false, with a zero delta, when fewer than
// minMatchedPoints pairs are available or the fit fails.
func FitRigid(prev, cur []gocv.Point2f) (Delta, bool) {
	if len(prev) < minMatchedPoints || len(cur) != len(prev) {
		return Delta{}, false
	}

	from := gocv.NewPoint2fVectorFromPoints(prev)
	defer from.Close()
	to := gocv.NewPoint2fVectorFromPoints(cur)
	defer to.Close()

	m := gocv.EstimateAffinePartial2D(from, to)
	defer m.Close()
	if m.Empty() {
		return Delta{}, false
	}

	return Delta{
		DX:     m.GetDoubleAt(0, 2),
		DY:     m.GetDoubleAt(1, 2),
		DAngle: math.Atan2(m.GetDoubleAt(1, 0), m.GetDoubleAt(0, 0)),
	}, true
}
