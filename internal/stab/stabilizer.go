package stab

import (
	"errors"
	"log"

	"github.com/ayusman/steadyframe/internal/motion"
	"github.com/ayusman/steadyframe/internal/trajectory"
	"github.com/ayusman/steadyframe/internal/video"
)

// ErrEmptySource is returned when a source yields no frames at all.
var ErrEmptySource = errors.New("source produced no frames")

// Analysis is the result of a motion-estimation pass: the per-pair deltas,
// the cumulative and smoothed trajectories, and the compensation
// transforms applied at render time. Index i describes destination frame
// i+1 of the source.
type Analysis struct {
	Raw            []trajectory.Point
	Trajectory     trajectory.Trajectory
	Smoothed       trajectory.Trajectory
	Transforms     []trajectory.Point
	Window         int
	KeypointMethod string
	FPS            float64
}

// Stabilizer runs the analyze and stabilize operations over frame sources.
// It is single-threaded; one run owns all of its state.
type Stabilizer struct {
	opts      Options
	estimator *motion.Estimator
}

// New validates the configuration and creates a Stabilizer. Invalid border
// types and unknown keypoint methods fail here, before any frame is read.
func New(opts Options) (*Stabilizer, error) {
	opts = opts.withDefaults()
	if _, err := borderModeFor(opts.BorderType); err != nil {
		return nil, err
	}
	estimator, err := motion.NewEstimator(opts.KeypointMethod)
	if err != nil {
		return nil, err
	}
	return &Stabilizer{opts: opts, estimator: estimator}, nil
}

// Options returns the effective configuration.
func (s *Stabilizer) Options() Options { return s.opts }

// Close releases the keypoint detector.
func (s *Stabilizer) Close() error { return s.estimator.Close() }

// pipeline bundles the mutable state threaded through one run: raw deltas,
// trajectories, the frame queue and the detector state. Keeping it in one
// explicit context avoids hidden coupling between the stages.
type pipeline struct {
	raw        []trajectory.Point
	traj       trajectory.Trajectory
	smoothed   trajectory.Trajectory
	transforms []trajectory.Point
	queue      *frameQueue
	det        *motion.State
}

func newPipeline(window int) *pipeline {
	return &pipeline{queue: newFrameQueue(window), det: motion.NewState()}
}

func (p *pipeline) accumulate(d motion.Delta) {
	pt := trajectory.Point{X: d.DX, Y: d.DY, Angle: d.DAngle}
	p.raw = append(p.raw, pt)
	p.traj = trajectory.Accumulate(p.traj, pt)
}

// recompute re-derives the smoothed trajectory and the compensation
// transforms over the full history. New samples can move the first valid
// window mean and with it the back-filled prefix, so a suffix-only update
// would not be equivalent.
func (p *pipeline) recompute(window int) {
	p.smoothed = trajectory.Smooth(p.traj, window)
	p.transforms = trajectory.Compensate(p.raw, p.traj, p.smoothed)
}

func (p *pipeline) Close() {
	p.queue.Close()
	p.det.Close()
}

// Analyze consumes the entire source once and produces trajectory data
// without rendering anything.
func (s *Stabilizer) Analyze(src video.Source) (*Analysis, error) {
	p := newPipeline(s.opts.SmoothingWindow)
	defer p.Close()

	if err := s.seed(src, p); err != nil {
		return nil, err
	}

	prog := newProgress("analyze", sourceFrames(src), 0, s.opts.ShowProgress)
	for {
		frame, ok := src.Read()
		if !ok {
			break
		}
		delta := s.estimator.NextDelta(frame, p.det)
		frame.Close()
		p.accumulate(delta)
		prog.step()
	}
	prog.finish()

	p.recompute(s.opts.SmoothingWindow)
	return s.analysis(p, src.FPS()), nil
}

// Stabilize renders the stabilized stream to the sink produced by
// openSink. With a nil prior it interleaves motion estimation and
// rendering, keeping at most a window's worth of frames buffered. With a
// non-nil prior its stored compensation transforms are reused and motion
// estimation is skipped entirely; reuse versus reanalysis is always the
// caller's explicit choice.
func (s *Stabilizer) Stabilize(src video.Source, openSink SinkFactory, prior *Analysis) (*Analysis, error) {
	if prior != nil {
		return prior, s.applyStored(src, openSink, prior)
	}
	return s.stream(src, openSink)
}

// seed reads the first frame to prime the detector state. The first frame
// is never rendered; deltas describe destination frames.
func (s *Stabilizer) seed(src video.Source, p *pipeline) error {
	frame, ok := src.Read()
	if !ok {
		return ErrEmptySource
	}
	s.estimator.Seed(frame, p.det)
	frame.Close()
	return nil
}

func (s *Stabilizer) stream(src video.Source, openSink SinkFactory) (*Analysis, error) {
	opts := s.opts
	r, err := newRenderer(opts, openSink, src.FPS())
	if err != nil {
		return nil, err
	}

	p := newPipeline(opts.SmoothingWindow)
	defer p.Close()

	preview, ownedPreview := s.preview()
	if ownedPreview {
		defer preview.Close()
	}

	if err := s.seed(src, p); err != nil {
		r.Close()
		return nil, err
	}

	prog := newProgress("stabilize", sourceFrames(src), opts.MaxFrames, opts.ShowProgress)

	// Fill phase: admit a window of frames before the first render, so
	// every rendered frame has seen a full window of lookahead.
	idx := 0
	srcDone := false
	for idx < opts.SmoothingWindow && (opts.MaxFrames == 0 || idx < opts.MaxFrames) {
		frame, ok := src.Read()
		if !ok {
			srcDone = true
			break
		}
		delta := s.estimator.NextDelta(frame, p.det)
		p.accumulate(delta)
		p.queue.Admit(frame, idx)
		idx++
	}
	p.recompute(opts.SmoothingWindow)

	var renderErr error
	for p.queue.Len() > 0 {
		e, _ := p.queue.Pop()

		if !srcDone && (opts.MaxFrames == 0 || idx < opts.MaxFrames) {
			if frame, ok := src.Read(); ok {
				delta := s.estimator.NextDelta(frame, p.det)
				p.accumulate(delta)
				p.queue.Admit(frame, idx)
				idx++
				p.recompute(opts.SmoothingWindow)
			} else {
				srcDone = true
			}
		}

		if opts.MaxFrames > 0 && e.index >= opts.MaxFrames {
			e.frame.Close()
			break
		}

		stop, err := s.renderOne(r, preview, e, p.transforms[e.index])
		if err != nil {
			renderErr = err
			break
		}
		prog.step()
		if stop {
			break
		}
	}

	// Drain: buffered frames, detector state, sink and preview are all
	// released here regardless of how the loop ended.
	if closeErr := r.Close(); closeErr != nil && renderErr == nil {
		log.Printf("stabilize: closing sink: %v", closeErr)
	}
	if renderErr != nil {
		return nil, renderErr
	}
	prog.finish()
	return s.analysis(p, src.FPS()), nil
}

// applyStored re-renders a source using previously computed transforms,
// letting border and layering settings change without repeating the
// motion-estimation pass.
func (s *Stabilizer) applyStored(src video.Source, openSink SinkFactory, prior *Analysis) error {
	r, err := newRenderer(s.opts, openSink, src.FPS())
	if err != nil {
		return err
	}

	preview, ownedPreview := s.preview()
	if ownedPreview {
		defer preview.Close()
	}

	// The first frame has no transform; skip it like a fresh run does.
	first, ok := src.Read()
	if !ok {
		r.Close()
		return ErrEmptySource
	}
	first.Close()

	prog := newProgress("apply", sourceFrames(src), s.opts.MaxFrames, s.opts.ShowProgress)

	var renderErr error
	for idx := 0; idx < len(prior.Transforms); idx++ {
		if s.opts.MaxFrames > 0 && idx >= s.opts.MaxFrames {
			break
		}
		frame, ok := src.Read()
		if !ok {
			break
		}
		stop, err := s.renderOne(r, preview, queueEntry{frame: frame, index: idx}, prior.Transforms[idx])
		if err != nil {
			renderErr = err
			break
		}
		prog.step()
		if stop {
			break
		}
	}

	if closeErr := r.Close(); closeErr != nil && renderErr == nil {
		log.Printf("apply: closing sink: %v", closeErr)
	}
	if renderErr != nil {
		return renderErr
	}
	prog.finish()
	return nil
}

// renderOne renders, emits and previews a single frame, consuming e.frame.
// It reports whether the preview requested an early stop.
func (s *Stabilizer) renderOne(r *renderer, preview Preview, e queueEntry, comp trajectory.Point) (bool, error) {
	out, err := r.render(e.frame, comp)
	e.frame.Close()
	if err != nil {
		return false, err
	}
	defer out.Close()

	if err := r.emit(out); err != nil {
		return false, err
	}
	if preview != nil && preview.Show(out, e.index) {
		return true, nil
	}
	return false, nil
}

// preview resolves the configured preview. The second result reports
// whether the stabilizer created it and must close it; caller-supplied
// previews stay with the caller.
func (s *Stabilizer) preview() (Preview, bool) {
	if s.opts.Preview != nil {
		return s.opts.Preview, false
	}
	if s.opts.Playback {
		return NewWindowPreview("steadyframe playback (q or ESC to quit)"), true
	}
	return nil, false
}

func (s *Stabilizer) analysis(p *pipeline, fps float64) *Analysis {
	return &Analysis{
		Raw:            p.raw,
		Trajectory:     p.traj,
		Smoothed:       p.smoothed,
		Transforms:     p.transforms,
		Window:         s.opts.SmoothingWindow,
		KeypointMethod: s.opts.KeypointMethod,
		FPS:            fps,
	}
}

// sourceFrames reports the source length for progress purposes, adjusted
// for the unrendered first frame.
func sourceFrames(src video.Source) int {
	count := src.FrameCount()
	if count <= 0 {
		return 0
	}
	return count - 1
}
