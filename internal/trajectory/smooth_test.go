package trajectory

import "testing"

// singleComponent builds a trajectory with the given x values so rolling
// behavior can be checked on one axis.
func singleComponent(vals ...float64) Trajectory {
	traj := make(Trajectory, len(vals))
	for i, v := range vals {
		traj[i] = Point{X: v}
	}
	return traj
}

func TestSmooth_WindowFiveScenario(t *testing.T) {
	// Trajectory 1..7 with window 5: rolling means at indices 4..6 are
	// 3, 4, 5 and indices 0..3 are back-filled with 3.
	traj := singleComponent(1, 2, 3, 4, 5, 6, 7)

	smoothed := Smooth(traj, 5)

	want := []float64{3, 3, 3, 3, 3, 4, 5}
	if len(smoothed) != len(want) {
		t.Fatalf("len(smoothed) = %d, want %d", len(smoothed), len(want))
	}
	for i, w := range want {
		if !almostEqual(smoothed[i].X, w) {
			t.Errorf("smoothed[%d].X = %f, want %f", i, smoothed[i].X, w)
		}
	}
}

func TestSmooth_BackfillInvariant(t *testing.T) {
	traj := singleComponent(4, -2, 9, 1, 0, 7, 3, 3, -5, 10)

	for _, window := range []int{1, 2, 3, 5, 9, 10} {
		smoothed := Smooth(traj, window)

		if len(smoothed) != len(traj) {
			t.Fatalf("window %d: len(smoothed) = %d, want %d", window, len(smoothed), len(traj))
		}
		// Every index before the first full window must carry the first
		// fully defined mean.
		for i := 0; i < window-1; i++ {
			if smoothed[i] != smoothed[window-1] {
				t.Errorf("window %d: smoothed[%d] = %+v, want %+v", window, i, smoothed[i], smoothed[window-1])
			}
		}
	}
}

func TestSmooth_TrailingMeanValues(t *testing.T) {
	traj := singleComponent(2, 4, 6, 8, 10, 12)
	window := 3

	smoothed := Smooth(traj, window)

	for i := window - 1; i < len(traj); i++ {
		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += traj[j].X
		}
		want := sum / float64(window)
		if !almostEqual(smoothed[i].X, want) {
			t.Errorf("smoothed[%d].X = %f, want %f", i, smoothed[i].X, want)
		}
	}
}

func TestSmooth_WindowOneIsIdentity(t *testing.T) {
	traj := singleComponent(5, -1, 2)

	smoothed := Smooth(traj, 1)

	for i := range traj {
		if smoothed[i] != traj[i] {
			t.Errorf("smoothed[%d] = %+v, want %+v", i, smoothed[i], traj[i])
		}
	}
}

func TestSmooth_WindowLargerThanTrajectoryClamps(t *testing.T) {
	// A drained stream can leave fewer samples than the window; the
	// window clamps so the whole array becomes its own mean.
	traj := singleComponent(3, 6, 9)

	smoothed := Smooth(traj, 30)

	for i := range smoothed {
		if !almostEqual(smoothed[i].X, 6) {
			t.Errorf("smoothed[%d].X = %f, want 6", i, smoothed[i].X)
		}
	}
}

func TestSmooth_AllComponents(t *testing.T) {
	traj := Trajectory{
		{X: 1, Y: 10, Angle: 0.1},
		{X: 2, Y: 20, Angle: 0.2},
		{X: 3, Y: 30, Angle: 0.3},
	}

	smoothed := Smooth(traj, 3)

	last := smoothed[2]
	if !almostEqual(last.X, 2) || !almostEqual(last.Y, 20) || !almostEqual(last.Angle, 0.2) {
		t.Errorf("smoothed[2] = %+v, want {2 20 0.2}", last)
	}
}

func TestSmooth_Empty(t *testing.T) {
	if got := Smooth(nil, 5); got != nil {
		t.Errorf("Smooth(nil) = %v, want nil", got)
	}
}

func TestSmooth_Recompute_IsDeterministic(t *testing.T) {
	// Re-running the smoother over identical input must be bit-identical;
	// reuse of stored analyses depends on it.
	traj := singleComponent(1, 4, 2, 8, 5, 7)

	a := Smooth(traj, 4)
	b := Smooth(traj, 4)

	for i := range a {
		if a[i] != b[i] {
			t.Errorf("smoothed[%d] differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
