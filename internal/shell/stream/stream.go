// Package stream provides result stream sinks for template status events.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/artpar/hoster-template/internal/core/domain"
)

// ErrClosed is returned when writing to a closed stream.
var ErrClosed = errors.New("result stream is closed")

// ContentType is the media type of a JSON lines stream.
const ContentType = "application/x-ndjson"

// JSONLines writes each status event as one JSON document per line.
// When the underlying writer is an http.Flusher every event is flushed so
// clients see progress while a build runs.
type JSONLines struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *json.Encoder
	flusher http.Flusher
	closed  bool
}

// NewJSONLines creates a stream writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	s := &JSONLines{
		w:   w,
		enc: json.NewEncoder(w),
	}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

// Write encodes event as one line.
func (s *JSONLines) Write(event domain.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.enc.Encode(event); err != nil {
		return fmt.Errorf("failed to write status event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Close marks the stream finished. It is safe to call more than once and
// does not close the underlying writer.
func (s *JSONLines) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Closed reports whether Close has been called.
func (s *JSONLines) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
