package motion

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestNewDetector_UnknownMethod(t *testing.T) {
	_, err := NewDetector("SURF3000")
	if !errors.Is(err, ErrUnknownKeypointMethod) {
		t.Errorf("err = %v, want ErrUnknownKeypointMethod", err)
	}
}

func TestNewDetector_GFTTDefault(t *testing.T) {
	d, err := NewDetector("gftt")
	if err != nil {
		t.Fatalf("NewDetector(gftt) error = %v", err)
	}
	defer d.Close()

	g, ok := d.(*gfttDetector)
	if !ok {
		t.Fatalf("detector type = %T, want *gfttDetector", d)
	}
	if g.params != DefaultGFTTParams() {
		t.Errorf("params = %+v, want defaults %+v", g.params, DefaultGFTTParams())
	}
}

func TestDefaultGFTTParams(t *testing.T) {
	p := DefaultGFTTParams()
	if p.MaxCorners != 200 || p.Quality != 0.01 || p.MinDistance != 30 {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestPointsToMat_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	points := []gocv.Point2f{
		{X: 1.5, Y: 2.5},
		{X: 100, Y: 200},
		{X: 0, Y: 0},
	}

	m := pointsToMat(points)
	defer m.Close()

	if m.Rows() != len(points) {
		t.Fatalf("rows = %d, want %d", m.Rows(), len(points))
	}
	for i, p := range points {
		x := m.GetFloatAt(i, 0)
		y := m.GetFloatAt(i, 1)
		if x != p.X || y != p.Y {
			t.Errorf("point %d = (%f, %f), want (%f, %f)", i, x, y, p.X, p.Y)
		}
	}
}

func TestPointsToMat_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	m := pointsToMat(nil)
	defer m.Close()

	if !m.Empty() {
		t.Error("expected empty Mat for no points")
	}
}

func TestGFTTDetector_FindsCorners(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	// A white rectangle on black background has trackable corners.
	gray := gocv.Zeros(200, 200, gocv.MatTypeCV8UC1)
	defer gray.Close()
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 80, 80, gocv.MatTypeCV8UC1)
	defer white.Close()
	region := gray.Region(image.Rect(60, 60, 140, 140))
	white.CopyTo(&region)
	region.Close()

	d := NewGFTTDetector(GFTTParams{MaxCorners: 50, Quality: 0.01, MinDistance: 10})
	defer d.Close()

	corners := d.Detect(gray)
	defer corners.Close()

	if corners.Rows() < 4 {
		t.Errorf("detected %d corners, want at least 4", corners.Rows())
	}
}
