package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"
)

// streamInterval paces the preview at about 15 FPS.
const streamInterval = 66 * time.Millisecond

// FrameSource hands out copies of the latest camera frame.
type FrameSource interface {
	LatestFrame() (*gocv.Mat, bool)
}

// StreamHandler serves the camera preview as MJPEG. It reads frames the render loop
// already captured, so the preview never competes with the loop for the camera.
type StreamHandler struct {
	source FrameSource
}

// NewStreamHandler creates a new StreamHandler over source.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		if err := h.writeFrame(w); err != nil {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// writeFrame writes one multipart JPEG part. A missing frame is skipped silently.
func (h *StreamHandler) writeFrame(w http.ResponseWriter) error {
	frame, ok := h.source.LatestFrame()
	if !ok {
		return nil
	}
	buf, err := gocv.IMEncode(".jpg", *frame)
	frame.Close()
	if err != nil {
		return nil
	}
	defer buf.Close()

	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", buf.Len()); err != nil {
		return err
	}
	if _, err := w.Write(buf.GetBytes()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
