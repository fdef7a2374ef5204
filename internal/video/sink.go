package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Sink receives rendered frames. Implementations must be written to in
// strictly increasing frame order.
type Sink interface {
	// Write emits one frame. The sink must not retain the Mat.
	Write(frame gocv.Mat) error
	Close() error
}

// FileSink writes frames to a video file using a GoCV VideoWriter.
type FileSink struct {
	writer *gocv.VideoWriter
	path   string
}

// NewFileSink opens a video writer for the given path, codec fourcc, frame
// rate and frame shape. It fails fast when the writer cannot be
// constructed, e.g. for an unsupported codec or shape.
func NewFileSink(path, fourcc string, fps float64, width, height int) (*FileSink, error) {
	writer, err := gocv.VideoWriterFile(path, fourcc, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %q: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("open video writer %q: codec %q rejected for %dx%d", path, fourcc, width, height)
	}
	return &FileSink{writer: writer, path: path}, nil
}

func (s *FileSink) Write(frame gocv.Mat) error {
	if err := s.writer.Write(frame); err != nil {
		return fmt.Errorf("write frame to %q: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) Close() error {
	return s.writer.Close()
}
