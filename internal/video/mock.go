package video

import (
	"gocv.io/x/gocv"
)

// MockSource plays back pre-built frames for testing.
type MockSource struct {
	frames []gocv.Mat
	index  int
	fps    float64
	count  int
}

// NewMockSource creates a source that serves clones of frames in order.
// The caller keeps ownership of the originals.
func NewMockSource(frames []gocv.Mat, fps float64) *MockSource {
	return &MockSource{frames: frames, fps: fps, count: len(frames)}
}

func (s *MockSource) Read() (gocv.Mat, bool) {
	if s.index >= len(s.frames) {
		return gocv.Mat{}, false
	}
	frame := s.frames[s.index].Clone()
	s.index++
	return frame, true
}

func (s *MockSource) FrameCount() int { return s.count }

func (s *MockSource) FPS() float64 { return s.fps }

func (s *MockSource) IsDevice() bool { return false }

func (s *MockSource) Close() error { return nil }

// Reads returns how many frames have been read so far.
func (s *MockSource) Reads() int { return s.index }

// MemorySink collects written frames in memory for testing. Close marks
// the sink closed but keeps the frames so tests can inspect them; call
// Release to free them.
type MemorySink struct {
	frames []gocv.Mat
	closed bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(frame gocv.Mat) error {
	s.frames = append(s.frames, frame.Clone())
	return nil
}

// Frames returns the frames written so far. The sink keeps ownership.
func (s *MemorySink) Frames() []gocv.Mat { return s.frames }

// Count returns the number of frames written.
func (s *MemorySink) Count() int { return len(s.frames) }

// Closed reports whether Close has been called.
func (s *MemorySink) Closed() bool { return s.closed }

func (s *MemorySink) Close() error {
	s.closed = true
	return nil
}

// Release frees the collected frames.
func (s *MemorySink) Release() {
	for i := range s.frames {
		s.frames[i].Close()
	}
	s.frames = nil
}
