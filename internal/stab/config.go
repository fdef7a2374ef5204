// Package stab implements the windowed trajectory-smoothing and
// transform-compensation engine that turns a shaky frame stream into a
// stabilized one.
package stab

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Border type names accepted by Options.BorderType.
const (
	BorderBlack     = "black"
	BorderReflect   = "reflect"
	BorderReplicate = "replicate"
	BorderTrail     = "trail"
)

// ErrInvalidBorderType is returned for border type names outside
// black, reflect, replicate and trail.
var ErrInvalidBorderType = errors.New("invalid border type")

// Options configures a Stabilizer. The zero value of any field falls back
// to the corresponding default from DefaultOptions.
type Options struct {
	// KeypointMethod names the keypoint detector (see motion.NewDetector).
	KeypointMethod string
	// SmoothingWindow is the rolling-mean window size in frames. It also
	// bounds the pipeline's lookahead latency.
	SmoothingWindow int
	// MaxFrames caps how many frames are rendered; 0 means unbounded.
	MaxFrames int
	// BorderType selects how warp borders are filled.
	BorderType string
	// BorderSize is the net border in pixels. Negative values crop the
	// output instead of padding it.
	BorderSize int
	// FourCC is the codec tag for file output.
	FourCC string
	// Layer optionally combines each rendered frame with the previous
	// output frame.
	Layer LayerFunc
	// ShowProgress enables periodic progress logging.
	ShowProgress bool
	// Playback mirrors rendered frames to the configured preview.
	Playback bool
	// Preview receives rendered frames when Playback is set. Defaults to
	// an on-screen window.
	Preview Preview
}

// DefaultOptions returns the stock configuration: GFTT keypoints, a
// 30-frame window, black borders, MJPG output and progress logging on.
func DefaultOptions() Options {
	return Options{
		KeypointMethod:  "GFTT",
		SmoothingWindow: 30,
		BorderType:      BorderBlack,
		FourCC:          "MJPG",
		ShowProgress:    true,
	}
}

// withDefaults fills unset fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.KeypointMethod == "" {
		o.KeypointMethod = def.KeypointMethod
	}
	if o.SmoothingWindow <= 0 {
		o.SmoothingWindow = def.SmoothingWindow
	}
	if o.BorderType == "" {
		o.BorderType = def.BorderType
	}
	if o.FourCC == "" {
		o.FourCC = def.FourCC
	}
	return o
}

// borderModeFor maps a border type name to the warp border mode. The trail
// mode warps onto the previous output, which OpenCV expresses as a
// transparent border.
func borderModeFor(borderType string) (gocv.BorderType, error) {
	switch borderType {
	case BorderBlack:
		return gocv.BorderConstant, nil
	case BorderReflect:
		return gocv.BorderReflect, nil
	case BorderReplicate:
		return gocv.BorderReplicate, nil
	case BorderTrail:
		return gocv.BorderTransparent, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidBorderType, borderType)
}
