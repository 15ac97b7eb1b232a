package tasklog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nferrell/taskpool-api/internal/domain"
)

// defaultBufferSize is the number of pending entries the sink holds before
// appends start being rejected (and logged) instead of queued.
const defaultBufferSize = 256

// Sink serializes attempt log entries into a single ordered stream on one
// underlying writer. All writes happen on a dedicated goroutine, so entries
// submitted by concurrent workers never interleave and appear in the order
// they were accepted.
type Sink struct {
	entries chan string
	out     io.WriteCloser
	logger  *slog.Logger
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewSink creates a sink writing to out and starts its writer goroutine.
func NewSink(out io.WriteCloser, logger *slog.Logger) *Sink {
	s := &Sink{
		entries: make(chan string, defaultBufferSize),
		out:     out,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// NewFileSink creates a sink appending to the file at path, creating it if
// needed.
func NewFileSink(path string, logger *slog.Logger) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open task log file: %w", err)
	}
	return NewSink(f, logger), nil
}

// LogAttempt appends one line marking the start of an attempt:
//
//	<RFC3339 timestamp> | worker-<id> | task-<id> | attempt-<n> | <message>
//
// It never blocks the calling worker: when the sink is closed or its buffer
// is full the entry is dropped, and the drop is logged rather than silent.
func (s *Sink) LogAttempt(workerID int, t *domain.Task) {
	line := fmt.Sprintf("%s | worker-%d | task-%s | attempt-%d | %s\n",
		time.Now().UTC().Format(time.RFC3339),
		workerID,
		t.ID,
		t.Attempts,
		t.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Warn("attempt log entry dropped, sink closed",
			"task_id", t.ID,
			"worker_id", workerID)
		return
	}

	select {
	case s.entries <- line:
	default:
		s.logger.Error("attempt log entry dropped, sink buffer full",
			"task_id", t.ID,
			"worker_id", workerID,
			"buffer_size", cap(s.entries))
	}
}

// Close stops accepting entries, flushes everything already queued, and
// closes the underlying writer.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.entries)
	s.mu.Unlock()

	<-s.done
	return s.out.Close()
}

// writeLoop drains the entry channel onto the writer. Write failures are
// logged and processing continues; the sink is best-effort by contract.
func (s *Sink) writeLoop() {
	defer close(s.done)

	for line := range s.entries {
		if _, err := io.WriteString(s.out, line); err != nil {
			s.logger.Error("failed to append task log entry", "error", err)
		}
	}
}
