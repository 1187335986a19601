// Package stream frames turn events for Server-Sent Events clients.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// DoneMarker is the payload of the frame that ends every stream.
const DoneMarker = "[DONE]"

// SetHeaders marks a response as an uncached event stream.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// Writer writes SSE frames, flushing after each one when the underlying
// writer supports it.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Frame encodes one event as "data: <json>\n\n".
func Frame(ev domain.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	out := make([]byte, 0, len(data)+8)
	out = append(out, "data: "...)
	out = append(out, data...)
	return append(out, "\n\n"...), nil
}

// WriteEvent writes one event frame.
func (w *Writer) WriteEvent(ev domain.Event) error {
	frame, err := Frame(ev)
	if err != nil {
		return err
	}
	return w.write(frame)
}

// WriteDone writes the terminating frame.
func (w *Writer) WriteDone() error {
	return w.write([]byte("data: " + DoneMarker + "\n\n"))
}

func (w *Writer) write(p []byte) error {
	if _, err := w.w.Write(p); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// Pipe writes every event of seq followed by the done frame. A write error
// stops the sequence and is returned; the done frame is then skipped.
func Pipe(w *Writer, seq iter.Seq[domain.Event]) error {
	for ev := range seq {
		if err := w.WriteEvent(ev); err != nil {
			return err
		}
	}
	return w.WriteDone()
}
