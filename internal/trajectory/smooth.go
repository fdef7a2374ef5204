package trajectory

import "gonum.org/v1/gonum/floats"

// Smooth returns a smoothed copy of traj using a trailing rolling mean of
// the given window size over each component independently.
//
// The mean at index i covers traj[i-window+1 .. i] and is only defined for
// i >= window-1. Earlier indices are back-filled with the first fully
// defined mean, so the smoothed path at the start of a clip stays close to
// the values that follow instead of diverging toward zero. Windows larger
// than the trajectory are clamped to its length, which keeps the tail of a
// drained stream well defined.
//
// The result is recomputed from scratch on every call; incoming samples can
// move the first valid mean and with it the whole back-filled prefix.
func Smooth(traj Trajectory, window int) Trajectory {
	if len(traj) == 0 {
		return nil
	}
	if window < 1 {
		window = 1
	}
	if window > len(traj) {
		window = len(traj)
	}

	xs := rollingMean(component(traj, func(p Point) float64 { return p.X }), window)
	ys := rollingMean(component(traj, func(p Point) float64 { return p.Y }), window)
	as := rollingMean(component(traj, func(p Point) float64 { return p.Angle }), window)

	smoothed := make(Trajectory, len(traj))
	for i := range smoothed {
		smoothed[i] = Point{X: xs[i], Y: ys[i], Angle: as[i]}
	}
	return smoothed
}

func component(traj Trajectory, get func(Point) float64) []float64 {
	vals := make([]float64, len(traj))
	for i, p := range traj {
		vals[i] = get(p)
	}
	return vals
}

// rollingMean computes the trailing rolling mean of vals, back-filling the
// first window-1 entries with the first fully defined mean. Callers
// guarantee 1 <= window <= len(vals).
func rollingMean(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	first := floats.Sum(vals[:window]) / float64(window)
	for i := range vals {
		if i < window-1 {
			out[i] = first
			continue
		}
		out[i] = floats.Sum(vals[i-window+1:i+1]) / float64(window)
	}
	return out
}
