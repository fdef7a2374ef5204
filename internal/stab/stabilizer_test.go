package stab

import (
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/steadyframe/internal/motion"
	"github.com/ayusman/steadyframe/internal/video"
)

// shakyFrames builds a short clip of the textured block jittering around
// its home position. The caller releases the frames.
func shakyFrames(n int) []gocv.Mat {
	offsets := []int{0, 2, -1, 3, 0, -2, 1, 2, -1, 0}
	frames := make([]gocv.Mat, n)
	for i := range frames {
		frames[i] = testFrame(offsets[i%len(offsets)], offsets[(i+3)%len(offsets)])
	}
	return frames
}

func releaseFrames(frames []gocv.Mat) {
	for i := range frames {
		frames[i].Close()
	}
}

func newStabilizerForTest(t *testing.T, opts Options) *Stabilizer {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// notifySink wraps a MemorySink to observe the moment of each write.
type notifySink struct {
	*video.MemorySink
	onWrite func()
}

func (s *notifySink) Write(frame gocv.Mat) error {
	if s.onWrite != nil {
		s.onWrite()
	}
	return s.MemorySink.Write(frame)
}

// stopPreview requests an early stop once the given index is shown.
type stopPreview struct {
	stopAt int
	shows  int
}

func (p *stopPreview) Show(frame gocv.Mat, index int) bool {
	p.shows++
	return index >= p.stopAt
}

func (p *stopPreview) Close() error { return nil }

func TestNew_UnknownKeypointMethod(t *testing.T) {
	if _, err := New(Options{KeypointMethod: "SIFT-ish"}); !errors.Is(err, motion.ErrUnknownKeypointMethod) {
		t.Errorf("New() error = %v, want ErrUnknownKeypointMethod", err)
	}
}

func TestAnalyze_EmptySource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	s := newStabilizerForTest(t, Options{SmoothingWindow: 3})
	src := video.NewMockSource(nil, 30)
	if _, err := s.Analyze(src); !errors.Is(err, ErrEmptySource) {
		t.Errorf("Analyze() error = %v, want ErrEmptySource", err)
	}
}

func TestStabilize_EmptySource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	s := newStabilizerForTest(t, Options{SmoothingWindow: 3})
	src := video.NewMockSource(nil, 30)
	sink := video.NewMemorySink()
	if _, err := s.Stabilize(src, func(int, int, float64) (video.Sink, error) { return sink, nil }, nil); !errors.Is(err, ErrEmptySource) {
		t.Errorf("Stabilize() error = %v, want ErrEmptySource", err)
	}
}

func TestAnalyze_Lengths(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	const n = 8
	frames := shakyFrames(n)
	defer releaseFrames(frames)

	s := newStabilizerForTest(t, Options{SmoothingWindow: 3})
	a, err := s.Analyze(video.NewMockSource(frames, 24))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// The first frame only primes tracking, so every series has one entry
	// per remaining frame.
	want := n - 1
	if len(a.Raw) != want || len(a.Trajectory) != want || len(a.Smoothed) != want || len(a.Transforms) != want {
		t.Errorf("series lengths = %d/%d/%d/%d, want %d each",
			len(a.Raw), len(a.Trajectory), len(a.Smoothed), len(a.Transforms), want)
	}
	if a.Window != 3 || a.KeypointMethod != "GFTT" || a.FPS != 24 {
		t.Errorf("metadata = {%d %q %g}, want {3 GFTT 24}", a.Window, a.KeypointMethod, a.FPS)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	frames := shakyFrames(6)
	defer releaseFrames(frames)

	s := newStabilizerForTest(t, Options{SmoothingWindow: 3})
	first, err := s.Analyze(video.NewMockSource(frames, 30))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	second, err := s.Analyze(video.NewMockSource(frames, 30))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	for i := range first.Raw {
		if first.Raw[i] != second.Raw[i] || first.Transforms[i] != second.Transforms[i] {
			t.Fatalf("analysis diverged at frame %d: %v vs %v", i, first.Raw[i], second.Raw[i])
		}
	}
}

func TestStabilize_StillClip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	const n = 5
	frames := make([]gocv.Mat, n)
	for i := range frames {
		frames[i] = testFrame(0, 0)
	}
	defer releaseFrames(frames)

	s := newStabilizerForTest(t, Options{SmoothingWindow: 3})
	sink := video.NewMemorySink()
	defer sink.Release()

	a, err := s.Stabilize(video.NewMockSource(frames, 30),
		func(int, int, float64) (video.Sink, error) { return sink, nil }, nil)
	if err != nil {
		t.Fatalf("Stabilize() error = %v", err)
	}

	if sink.Count() != n-1 {
		t.Fatalf("output frames = %d, want %d", sink.Count(), n-1)
	}
	if !sink.Closed() {
		t.Error("sink not closed after the run")
	}
	for i, p := range a.Transforms {
		if math.Abs(p.X) > 0.5 || math.Abs(p.Y) > 0.5 || math.Abs(p.Angle) > 0.01 {
			t.Errorf("transform %d = %+v, want near zero on a still clip", i, p)
		}
	}
	for i, out := range sink.Frames() {
		if out.Rows() != frames[0].Rows() || out.Cols() != frames[0].Cols() {
			t.Errorf("frame %d shape = %dx%d, want input shape", i, out.Cols(), out.Rows())
		}
	}
}

func TestStabilize_WindowLookahead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	const window = 3
	frames := shakyFrames(8)
	defer releaseFrames(frames)

	src := video.NewMockSource(frames, 30)
	mem := video.NewMemorySink()
	defer mem.Release()

	readsAtFirstWrite := -1
	sink := &notifySink{MemorySink: mem, onWrite: func() {
		if readsAtFirstWrite < 0 {
			readsAtFirstWrite = src.Reads()
		}
	}}

	s := newStabilizerForTest(t, Options{SmoothingWindow: window})
	if _, err := s.Stabilize(src, func(int, int, float64) (video.Sink, error) { return sink, nil }, nil); err != nil {
		t.Fatalf("Stabilize() error = %v", err)
	}

	// Nothing is written until the seed frame plus a full window have been
	// read, so every rendered frame saw a window of lookahead.
	if readsAtFirstWrite < 1+window {
		t.Errorf("first write after %d reads, want at least %d", readsAtFirstWrite, 1+window)
	}
	if mem.Count() != len(frames)-1 {
		t.Errorf("output frames = %d, want %d", mem.Count(), len(frames)-1)
	}
}

func TestStabilize_MaxFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	frames := shakyFrames(9)
	defer releaseFrames(frames)

	s := newStabilizerForTest(t, Options{SmoothingWindow: 3, MaxFrames: 2})
	sink := video.NewMemorySink()
	defer sink.Release()

	if _, err := s.Stabilize(video.NewMockSource(frames, 30),
		func(int, int, float64) (video.Sink, error) { return sink, nil }, nil); err != nil {
		t.Fatalf("Stabilize() error = %v", err)
	}
	if sink.Count() != 2 {
		t.Errorf("output frames = %d, want 2", sink.Count())
	}
}

func TestStabilize_ShortClipUnderWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	frames := shakyFrames(3)
	defer releaseFrames(frames)

	s := newStabilizerForTest(t, Options{SmoothingWindow: 30})
	sink := video.NewMemorySink()
	defer sink.Release()

	if _, err := s.Stabilize(video.NewMockSource(frames, 30),
		func(int, int, float64) (video.Sink, error) { return sink, nil }, nil); err != nil {
		t.Fatalf("Stabilize() error = %v", err)
	}
	if sink.Count() != len(frames)-1 {
		t.Errorf("output frames = %d, want %d", sink.Count(), len(frames)-1)
	}
}

func TestStabilize_ReusesPriorAnalysis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	frames := shakyFrames(7)
	defer releaseFrames(frames)

	s := newStabilizerForTest(t, Options{SmoothingWindow: 3})
	prior, err := s.Analyze(video.NewMockSource(frames, 30))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	sink := video.NewMemorySink()
	defer sink.Release()
	got, err := s.Stabilize(video.NewMockSource(frames, 30),
		func(int, int, float64) (video.Sink, error) { return sink, nil }, prior)
	if err != nil {
		t.Fatalf("Stabilize() error = %v", err)
	}

	if got != prior {
		t.Error("Stabilize with a prior should return that prior unchanged")
	}
	if sink.Count() != len(prior.Transforms) {
		t.Errorf("output frames = %d, want %d", sink.Count(), len(prior.Transforms))
	}
}

func TestStabilize_PreviewStopsEarly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	frames := shakyFrames(8)
	defer releaseFrames(frames)

	preview := &stopPreview{stopAt: 1}
	s := newStabilizerForTest(t, Options{SmoothingWindow: 3, Playback: true, Preview: preview})
	sink := video.NewMemorySink()
	defer sink.Release()

	if _, err := s.Stabilize(video.NewMockSource(frames, 30),
		func(int, int, float64) (video.Sink, error) { return sink, nil }, nil); err != nil {
		t.Fatalf("Stabilize() error = %v", err)
	}

	if preview.shows != 2 {
		t.Errorf("preview shows = %d, want 2", preview.shows)
	}
	if sink.Count() != 2 {
		t.Errorf("output frames = %d, want 2", sink.Count())
	}
}
