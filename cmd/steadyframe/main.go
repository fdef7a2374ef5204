package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ayusman/steadyframe/internal/plot"
	"github.com/ayusman/steadyframe/internal/server"
	"github.com/ayusman/steadyframe/internal/stab"
	"github.com/ayusman/steadyframe/internal/store"
	"github.com/ayusman/steadyframe/internal/video"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "stabilize":
		err = runStabilize(os.Args[2:])
	case "apply":
		err = runApply(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Println("Steadyframe - optical-flow video stabilization")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  steadyframe analyze   -in VIDEO [options]        motion analysis only")
	fmt.Println("  steadyframe stabilize -in VIDEO -out OUT [options]")
	fmt.Println("  steadyframe apply     -in VIDEO -out OUT -db DB [options]")
	fmt.Println()
	fmt.Println("Run a subcommand with -h for its options.")
}

// commonFlags holds the flags shared by all subcommands.
type commonFlags struct {
	in     string
	device int
	window int
	kp     string
	dbPath string
	quiet  bool
	fs     *flag.FlagSet
}

func newCommonFlags(name string) *commonFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &commonFlags{fs: fs}
	fs.StringVar(&c.in, "in", "", "input video path")
	fs.IntVar(&c.device, "device", -1, "capture device ID (overrides -in)")
	fs.IntVar(&c.window, "window", 30, "smoothing window size in frames")
	fs.StringVar(&c.kp, "kp", "GFTT", "keypoint method: GFTT, FAST, ORB, BRISK, AKAZE")
	fs.StringVar(&c.dbPath, "db", "", "analysis database path")
	fs.BoolVar(&c.quiet, "quiet", false, "suppress progress logging")
	return c
}

func (c *commonFlags) openSource() (video.Source, string, error) {
	if c.device >= 0 {
		src, err := video.OpenDevice(c.device)
		return src, fmt.Sprintf("device:%d", c.device), err
	}
	if c.in == "" {
		return nil, "", fmt.Errorf("-in or -device is required")
	}
	src, err := video.OpenFile(c.in)
	return src, c.in, err
}

// renderFlags holds the flags controlling the render stage.
type renderFlags struct {
	out        string
	border     string
	borderSize int
	maxFrames  int
	fourcc     string
	layer      string
	blendAlpha float64
	playback   bool
	preview    string
}

func addRenderFlags(fs *flag.FlagSet, r *renderFlags) {
	fs.StringVar(&r.out, "out", "", "output video path")
	fs.StringVar(&r.border, "border", "black", "border type: black, reflect, replicate, trail")
	fs.IntVar(&r.borderSize, "border-size", 0, "border size in pixels (negative crops)")
	fs.IntVar(&r.maxFrames, "max-frames", 0, "stop after this many frames (0 = all)")
	fs.StringVar(&r.fourcc, "fourcc", "MJPG", "output codec fourcc tag")
	fs.StringVar(&r.layer, "layer", "none", "frame layering: none, overlay, blend")
	fs.Float64Var(&r.blendAlpha, "blend-alpha", 0.5, "foreground alpha for -layer blend")
	fs.BoolVar(&r.playback, "playback", false, "show stabilized frames in a window")
	fs.StringVar(&r.preview, "preview", "", "serve an HTTP/WebSocket preview on this address")
}

func (r *renderFlags) layerFunc() (stab.LayerFunc, error) {
	switch r.layer {
	case "", "none":
		return nil, nil
	case "overlay":
		return stab.LayerOverlay, nil
	case "blend":
		return stab.LayerBlend(r.blendAlpha), nil
	}
	return nil, fmt.Errorf("unknown layer function %q", r.layer)
}

func runAnalyze(args []string) error {
	c := newCommonFlags("analyze")
	plotDir := c.fs.String("plot-dir", "", "write trajectory/transform plots to this directory")
	if err := c.fs.Parse(args); err != nil {
		return err
	}

	stabilizer, err := stab.New(stab.Options{
		KeypointMethod:  c.kp,
		SmoothingWindow: c.window,
		ShowProgress:    !c.quiet,
	})
	if err != nil {
		return err
	}
	defer stabilizer.Close()

	src, sourceName, err := c.openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	analysis, err := stabilizer.Analyze(src)
	if err != nil {
		return err
	}
	log.Printf("analyzed %d frame pairs (window %d)", len(analysis.Transforms), analysis.Window)

	if c.dbPath != "" {
		if err := saveAnalysis(c.dbPath, sourceName, analysis); err != nil {
			return err
		}
	}

	if *plotDir != "" {
		if err := writePlots(*plotDir, analysis); err != nil {
			return err
		}
	}
	return nil
}

func runStabilize(args []string) error {
	c := newCommonFlags("stabilize")
	var r renderFlags
	addRenderFlags(c.fs, &r)
	reuse := c.fs.Bool("reuse", false, "reuse the latest stored analysis for this source instead of re-analyzing")
	if err := c.fs.Parse(args); err != nil {
		return err
	}
	if r.out == "" {
		return fmt.Errorf("-out is required")
	}

	layer, err := r.layerFunc()
	if err != nil {
		return err
	}

	opts := stab.Options{
		KeypointMethod:  c.kp,
		SmoothingWindow: c.window,
		MaxFrames:       r.maxFrames,
		BorderType:      r.border,
		BorderSize:      r.borderSize,
		FourCC:          r.fourcc,
		Layer:           layer,
		ShowProgress:    !c.quiet,
		Playback:        r.playback,
	}

	if r.preview != "" {
		srv := server.New()
		go func() {
			if err := srv.ListenAndServe(r.preview); err != nil {
				log.Printf("preview server: %v", err)
			}
		}()
		defer srv.Close()
		opts.Preview = srv
		log.Printf("preview at http://%s/api/stream", r.preview)
	}

	stabilizer, err := stab.New(opts)
	if err != nil {
		return err
	}
	defer stabilizer.Close()

	src, sourceName, err := c.openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	var prior *stab.Analysis
	if *reuse {
		if c.dbPath == "" {
			return fmt.Errorf("-reuse requires -db")
		}
		prior, err = loadAnalysis(c.dbPath, sourceName, "")
		if err != nil {
			return err
		}
		log.Printf("reusing stored analysis (%d frame pairs)", len(prior.Transforms))
	}

	analysis, err := stabilizer.Stabilize(src, fileSinkFactory(r.out, r.fourcc), prior)
	if err != nil {
		return err
	}
	log.Printf("stabilized video written to %s", r.out)

	if c.dbPath != "" && !*reuse {
		if err := saveAnalysis(c.dbPath, sourceName, analysis); err != nil {
			return err
		}
	}
	return nil
}

func runApply(args []string) error {
	c := newCommonFlags("apply")
	var r renderFlags
	addRenderFlags(c.fs, &r)
	runID := c.fs.String("run", "", "analysis run ID (default: latest for this source)")
	if err := c.fs.Parse(args); err != nil {
		return err
	}
	if r.out == "" {
		return fmt.Errorf("-out is required")
	}
	if c.dbPath == "" {
		return fmt.Errorf("-db is required")
	}

	layer, err := r.layerFunc()
	if err != nil {
		return err
	}

	stabilizer, err := stab.New(stab.Options{
		KeypointMethod:  c.kp,
		SmoothingWindow: c.window,
		MaxFrames:       r.maxFrames,
		BorderType:      r.border,
		BorderSize:      r.borderSize,
		FourCC:          r.fourcc,
		Layer:           layer,
		ShowProgress:    !c.quiet,
		Playback:        r.playback,
	})
	if err != nil {
		return err
	}
	defer stabilizer.Close()

	src, sourceName, err := c.openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	prior, err := loadAnalysis(c.dbPath, sourceName, *runID)
	if err != nil {
		return err
	}

	if _, err := stabilizer.Stabilize(src, fileSinkFactory(r.out, r.fourcc), prior); err != nil {
		return err
	}
	log.Printf("re-rendered video written to %s", r.out)
	return nil
}

// fileSinkFactory builds the lazy sink constructor the pipeline calls once
// the output frame shape is known.
func fileSinkFactory(path, fourcc string) stab.SinkFactory {
	return func(width, height int, fps float64) (video.Sink, error) {
		if fps <= 0 {
			fps = 30
		}
		return video.NewFileSink(path, fourcc, fps, width, height)
	}
}

func saveAnalysis(dbPath, sourceName string, analysis *stab.Analysis) error {
	st, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	run := &store.Run{
		Source:         sourceName,
		KeypointMethod: analysis.KeypointMethod,
		Window:         analysis.Window,
		FPS:            analysis.FPS,
		Raw:            analysis.Raw,
		Trajectory:     analysis.Trajectory,
		Smoothed:       analysis.Smoothed,
	}
	if err := st.Runs().Create(run); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	log.Printf("analysis saved as run %s", run.ID)
	return nil
}

func loadAnalysis(dbPath, sourceName, runID string) (*stab.Analysis, error) {
	st, err := store.New(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var run *store.Run
	if runID != "" {
		run, err = st.Runs().GetByID(runID)
	} else {
		run, err = st.Runs().LatestForSource(sourceName)
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis: %w", err)
	}

	return &stab.Analysis{
		Raw:            run.Raw,
		Trajectory:     run.Trajectory,
		Smoothed:       run.Smoothed,
		Transforms:     run.Transforms(),
		Window:         run.Window,
		KeypointMethod: run.KeypointMethod,
		FPS:            run.FPS,
	}, nil
}

func writePlots(dir string, analysis *stab.Analysis) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	trajPath := dir + "/trajectory.png"
	if err := plot.Trajectory(analysis.Trajectory, analysis.Smoothed, trajPath); err != nil {
		return err
	}
	transformPath := dir + "/transforms.png"
	if err := plot.Transforms(analysis.Transforms, transformPath); err != nil {
		return err
	}
	log.Printf("plots written to %s", dir)
	return nil
}
