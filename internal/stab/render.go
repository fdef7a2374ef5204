package stab

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/steadyframe/internal/trajectory"
	"github.com/ayusman/steadyframe/internal/video"
)

// negBorderWarpPad is the internal border used when a negative border size
// is requested: the frame is still padded before warping so rotated
// content near the edges survives, and the requested crop is taken
// afterwards on top of it.
const negBorderWarpPad = 100

// SinkFactory constructs the output sink once the first rendered frame has
// fixed the output shape.
type SinkFactory func(width, height int, fps float64) (video.Sink, error)

// renderer turns compensation transforms into output frames: border
// expansion, affine warp, crop, optional layering and lazy sink
// construction.
type renderer struct {
	borderMode gocv.BorderType
	trail      bool
	expand     int // border applied around the frame before warping
	cropBuffer int // pixels cropped from each side after warping
	layer      LayerFunc
	openSink   SinkFactory
	fps        float64

	sink        video.Sink
	prevOutput  gocv.Mat
	trailCanvas gocv.Mat
}

func newRenderer(opts Options, openSink SinkFactory, fps float64) (*renderer, error) {
	mode, err := borderModeFor(opts.BorderType)
	if err != nil {
		return nil, err
	}

	// A negative border size becomes a post-hoc crop: warp behind a fixed
	// positive pad, then crop the pad plus the requested amount back out.
	// The net output is smaller than the input by |BorderSize| per side.
	expand := opts.BorderSize
	cropExtra := 0
	if expand < 0 {
		cropExtra = negBorderWarpPad - expand
		expand = negBorderWarpPad
	}

	return &renderer{
		borderMode:  mode,
		trail:       opts.BorderType == BorderTrail,
		expand:      expand,
		cropBuffer:  expand + cropExtra,
		layer:       opts.Layer,
		openSink:    openSink,
		fps:         fps,
		prevOutput:  gocv.NewMat(),
		trailCanvas: gocv.NewMat(),
	}, nil
}

// render warps one frame with its compensation transform and returns the
// output frame. The caller keeps ownership of frame and owns the result.
func (r *renderer) render(frame gocv.Mat, comp trajectory.Point) (gocv.Mat, error) {
	m := affineMatrix(comp)
	defer m.Close()

	// The trail mode keeps previous pixel content where the warp leaves
	// gaps, so the frame itself is expanded with plain zeros.
	expandMode := r.borderMode
	if r.trail {
		expandMode = gocv.BorderConstant
	}

	bordered := gocv.NewMat()
	defer bordered.Close()
	gocv.CopyMakeBorder(frame, &bordered,
		r.expand*2, r.expand*2, r.expand*2, r.expand*2,
		expandMode, color.RGBA{})

	size := image.Pt(bordered.Cols(), bordered.Rows())
	crop := image.Rect(r.cropBuffer, r.cropBuffer, size.X-r.cropBuffer, size.Y-r.cropBuffer)
	if crop.Dx() <= 0 || crop.Dy() <= 0 {
		return gocv.Mat{}, fmt.Errorf("border size crops away the whole %dx%d frame", frame.Cols(), frame.Rows())
	}

	var warped gocv.Mat
	if r.trail {
		if r.trailCanvas.Empty() {
			warped = gocv.Zeros(size.Y, size.X, bordered.Type())
		} else {
			warped = r.trailCanvas.Clone()
		}
	} else {
		warped = gocv.NewMat()
	}
	defer warped.Close()

	gocv.WarpAffineWithParams(bordered, &warped, m, size,
		gocv.InterpolationLinear, r.borderMode, color.RGBA{})

	if r.trail {
		r.trailCanvas.Close()
		r.trailCanvas = warped.Clone()
	}

	region := warped.Region(crop)
	out := region.Clone()
	region.Close()

	if r.layer != nil {
		if !r.prevOutput.Empty() {
			layered := r.layer(out, r.prevOutput)
			out.Close()
			out = layered
		}
		// The first eligible frame has no background yet; it passes
		// through unmodified and seeds the background for the next one.
		r.prevOutput.Close()
		r.prevOutput = out.Clone()
	}

	return out, nil
}

// emit writes an output frame to the sink, constructing the sink from the
// frame's shape on first use.
func (r *renderer) emit(out gocv.Mat) error {
	if r.sink == nil {
		sink, err := r.openSink(out.Cols(), out.Rows(), r.fps)
		if err != nil {
			return err
		}
		r.sink = sink
	}
	return r.sink.Write(out)
}

// Close releases render state and the sink. The sink error is reported so
// callers can surface it, but rendering already completed stays valid.
func (r *renderer) Close() error {
	r.prevOutput.Close()
	r.trailCanvas.Close()
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}

// affineMatrix builds the 2x3 rigid transform matrix for the given
// compensation parameters.
func affineMatrix(comp trajectory.Point) gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	sin, cos := math.Sincos(comp.Angle)
	m.SetDoubleAt(0, 0, cos)
	m.SetDoubleAt(0, 1, -sin)
	m.SetDoubleAt(1, 0, sin)
	m.SetDoubleAt(1, 1, cos)
	m.SetDoubleAt(0, 2, comp.X)
	m.SetDoubleAt(1, 2, comp.Y)
	return m
}
