// Package video provides frame sources and sinks on top of GoCV video
// capture and writing.
package video

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// deviceSettleDelay is how long a live capture device is given to settle
// exposure after opening, before any frames are consumed.
const deviceSettleDelay = 100 * time.Millisecond

// FrameCountUnknown is returned by Source.FrameCount when the source
// cannot report its length, e.g. a live device.
const FrameCountUnknown = -1

// Source supplies decoded frames in order.
type Source interface {
	// Read returns the next frame. The second result is false once the
	// source is exhausted; the caller owns the returned Mat otherwise.
	Read() (gocv.Mat, bool)
	// FrameCount returns the total number of frames, or FrameCountUnknown.
	FrameCount() int
	// FPS returns the source frame rate.
	FPS() float64
	// IsDevice reports whether the source is a live capture device.
	IsDevice() bool
	Close() error
}

type captureSource struct {
	cap    *gocv.VideoCapture
	device bool
}

// OpenFile opens a video file as a frame source.
func OpenFile(path string) (Source, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open video file %q: %w", path, err)
	}
	return &captureSource{cap: cap}, nil
}

// OpenDevice opens a live capture device as a frame source and waits a
// short settle delay so the device can stabilize exposure.
func OpenDevice(deviceID int) (Source, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", deviceID, err)
	}
	time.Sleep(deviceSettleDelay)
	return &captureSource{cap: cap, device: true}, nil
}

func (s *captureSource) Read() (gocv.Mat, bool) {
	mat := gocv.NewMat()
	if ok := s.cap.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return gocv.Mat{}, false
	}
	return mat, true
}

func (s *captureSource) FrameCount() int {
	if s.device {
		return FrameCountUnknown
	}
	count := int(s.cap.Get(gocv.VideoCaptureFrameCount))
	if count <= 0 {
		return FrameCountUnknown
	}
	return count
}

func (s *captureSource) FPS() float64 {
	return s.cap.Get(gocv.VideoCaptureFPS)
}

func (s *captureSource) IsDevice() bool { return s.device }

func (s *captureSource) Close() error { return s.cap.Close() }
