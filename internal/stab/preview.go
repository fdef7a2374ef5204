package stab

import "gocv.io/x/gocv"

// Preview receives rendered frames as they are emitted, e.g. for an
// on-screen window or a network stream. The pipeline never depends on a
// concrete implementation.
type Preview interface {
	// Show displays one rendered frame. It reports true when the viewer
	// requested the pipeline to stop; the drain phase still runs.
	Show(frame gocv.Mat, index int) bool
	Close() error
}

// WindowPreview shows rendered frames in an on-screen OpenCV window and
// lets the viewer quit with q or ESC.
type WindowPreview struct {
	window *gocv.Window
}

// NewWindowPreview opens the playback window.
func NewWindowPreview(title string) *WindowPreview {
	return &WindowPreview{window: gocv.NewWindow(title)}
}

func (p *WindowPreview) Show(frame gocv.Mat, index int) bool {
	p.window.IMShow(frame)
	key := p.window.WaitKey(1)
	return key == 'q' || key == 27
}

func (p *WindowPreview) Close() error {
	return p.window.Close()
}
