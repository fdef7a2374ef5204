// Package plot renders trajectory and transform diagnostics to PNG files.
package plot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ayusman/steadyframe/internal/trajectory"
)

// Trajectory writes a plot comparing the raw and smoothed camera paths
// (x and y components) to a PNG file.
func Trajectory(raw, smoothed trajectory.Trajectory, path string) error {
	if len(raw) == 0 {
		return fmt.Errorf("no trajectory to plot")
	}

	p := plot.New()
	p.Title.Text = "Video Trajectory"
	p.X.Label.Text = "Frame Number"
	p.Y.Label.Text = "Cumulative Motion (px)"

	series := []struct {
		name  string
		vals  trajectory.Trajectory
		get   func(trajectory.Point) float64
		color color.RGBA
	}{
		{"x trajectory", raw, func(pt trajectory.Point) float64 { return pt.X }, color.RGBA{R: 214, G: 69, B: 65, A: 255}},
		{"x smoothed", smoothed, func(pt trajectory.Point) float64 { return pt.X }, color.RGBA{R: 242, G: 155, B: 152, A: 255}},
		{"y trajectory", raw, func(pt trajectory.Point) float64 { return pt.Y }, color.RGBA{R: 31, G: 119, B: 180, A: 255}},
		{"y smoothed", smoothed, func(pt trajectory.Point) float64 { return pt.Y }, color.RGBA{R: 140, G: 190, B: 225, A: 255}},
	}

	for _, s := range series {
		line, err := plotter.NewLine(pointsXY(s.vals, s.get))
		if err != nil {
			return fmt.Errorf("build %s line: %w", s.name, err)
		}
		line.Color = s.color
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true

	return save(p, path)
}

// Transforms writes a plot of the per-frame compensation transforms to a
// PNG file.
func Transforms(transforms []trajectory.Point, path string) error {
	if len(transforms) == 0 {
		return fmt.Errorf("no transforms to plot")
	}

	p := plot.New()
	p.Title.Text = "Transformations for Stabilizing"
	p.X.Label.Text = "Frame Number"
	p.Y.Label.Text = "Delta"

	series := []struct {
		name  string
		get   func(trajectory.Point) float64
		color color.RGBA
	}{
		{"delta x", func(pt trajectory.Point) float64 { return pt.X }, color.RGBA{R: 31, G: 119, B: 180, A: 255}},
		{"delta y", func(pt trajectory.Point) float64 { return pt.Y }, color.RGBA{R: 255, G: 127, B: 14, A: 255}},
		{"delta angle", func(pt trajectory.Point) float64 { return pt.Angle }, color.RGBA{R: 44, G: 160, B: 44, A: 255}},
	}

	for _, s := range series {
		line, err := plotter.NewLine(pointsXY(transforms, s.get))
		if err != nil {
			return fmt.Errorf("build %s line: %w", s.name, err)
		}
		line.Color = s.color
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true

	return save(p, path)
}

func pointsXY(points []trajectory.Point, get func(trajectory.Point) float64) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(i)
		xys[i].Y = get(pt)
	}
	return xys
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %q: %w", path, err)
	}
	return nil
}
