package diag

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const asyncBuffer = 64

// AsyncSink decouples reporters from a possibly slow downstream sink.
// Report never blocks: records beyond the buffer are counted and folded
// into a single overflow record once the forwarder catches up. The bridge
// stays healthy no matter what the crash backend does.
type AsyncSink struct {
	next    Sink
	ch      chan Diagnostic
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncSink wraps next with a buffered forwarding goroutine.
func NewAsyncSink(next Sink) *AsyncSink {
	s := &AsyncSink{
		next: next,
		ch:   make(chan Diagnostic, asyncBuffer),
		done: make(chan struct{}),
	}
	go s.forward()
	return s
}

// Report implements Sink without blocking the caller. Records that arrive
// while the buffer is full, or after Close, are counted as dropped.
func (s *AsyncSink) Report(d Diagnostic) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return
	}

	select {
	case s.ch <- d:
	default:
		s.dropped.Add(1)
	}
}

// Close stops the forwarder after draining buffered records.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	<-s.done
}

func (s *AsyncSink) forward() {
	defer close(s.done)
	for d := range s.ch {
		s.next.Report(d)
		s.flushDropCount()
	}
	s.flushDropCount()
}

func (s *AsyncSink) flushDropCount() {
	if n := s.dropped.Swap(0); n > 0 {
		s.next.Report(Diagnostic{
			Component: "diag",
			Message:   fmt.Sprintf("%d diagnostics dropped under report pressure", n),
			Time:      time.Now(),
		})
	}
}
