package server

import (
	"fmt"
	"net/http"
	"time"
)

// streamInterval paces the MJPEG stream at roughly 15 FPS.
const streamInterval = 66 * time.Millisecond

// handleStream serves the rendered output as an MJPEG stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastIndex := -1
	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, index := s.frame()
		if frame == nil || index == lastIndex {
			time.Sleep(streamInterval)
			continue
		}
		lastIndex = index

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		w.Write(frame)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(streamInterval)
	}
}
