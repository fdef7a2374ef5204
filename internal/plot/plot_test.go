package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/steadyframe/internal/trajectory"
)

func samplePath(n int) trajectory.Trajectory {
	traj := make(trajectory.Trajectory, n)
	for i := range traj {
		traj[i] = trajectory.Point{X: float64(i), Y: float64(-i), Angle: 0.001 * float64(i)}
	}
	return traj
}

func TestTrajectory_WritesPNG(t *testing.T) {
	raw := samplePath(20)
	smoothed := samplePath(20)

	path := filepath.Join(t.TempDir(), "trajectory.png")
	if err := Trajectory(raw, smoothed, path); err != nil {
		t.Fatalf("Trajectory() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestTrajectory_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trajectory.png")
	if err := Trajectory(nil, nil, path); err == nil {
		t.Error("expected error for an empty trajectory")
	}
}

func TestTransforms_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transforms.png")
	if err := Transforms(samplePath(20), path); err != nil {
		t.Fatalf("Transforms() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestTransforms_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transforms.png")
	if err := Transforms(nil, path); err == nil {
		t.Error("expected error for empty transforms")
	}
}
