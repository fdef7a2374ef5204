// Package trajectory provides cumulative camera-path bookkeeping and the
// rolling-mean smoothing used to stabilize it.
package trajectory

// Point is one sample of camera motion: x/y translation in pixels and
// rotation in radians.
type Point struct {
	X     float64
	Y     float64
	Angle float64
}

// Add returns the component-wise sum of p and q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Angle: p.Angle + q.Angle}
}

// Sub returns the component-wise difference of p and q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Angle: p.Angle - q.Angle}
}

// Trajectory is the cumulative camera path. Entry i is the running sum of
// all frame-to-frame motion deltas up to and including delta i.
type Trajectory []Point

// Accumulate appends one motion delta to the trajectory as a cumulative
// entry. The first entry equals the first delta.
func Accumulate(traj Trajectory, delta Point) Trajectory {
	if len(traj) == 0 {
		return append(traj, delta)
	}
	return append(traj, traj[len(traj)-1].Add(delta))
}

// Compensate derives the per-frame compensation transforms from the raw
// motion deltas and the smoothed-vs-raw trajectory difference:
//
//	comp[i] = raw[i] + (smoothed[i] - traj[i])
//
// All three inputs must have the same length.
func Compensate(raw []Point, traj, smoothed Trajectory) []Point {
	comp := make([]Point, len(raw))
	for i := range raw {
		comp[i] = raw[i].Add(smoothed[i].Sub(traj[i]))
	}
	return comp
}
