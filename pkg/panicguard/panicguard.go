// Package panicguard contains unrecoverable failures raised inside the
// bridge's background execution context. A panic on any guarded goroutine
// is converted into exactly one Diagnostic and a fault notification instead
// of an unwind across the boundary or a process crash. Repeated identical
// failures (typical during shutdown) are coalesced so a crash loop does not
// become a report storm.
//
// The guard is an explicitly constructed service injected into the bridge,
// not ambient global state; a process-wide default is still available via
// Install for hosts that want a single last-resort hook.
package panicguard

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hapticsuite/buzzbridge/pkg/diag"
)

// Guard converts panics into Diagnostics. The zero value is not usable;
// construct with New.
type Guard struct {
	sink    diag.Sink
	onFault func(diag.Diagnostic)

	mu   sync.Mutex
	seen map[string]int
}

// New creates a Guard reporting to sink. onFault is invoked once per
// distinct failure, after the Diagnostic has been reported; it may be nil.
func New(sink diag.Sink, onFault func(diag.Diagnostic)) *Guard {
	if sink == nil {
		sink = diag.NopSink{}
	}
	return &Guard{
		sink:    sink,
		onFault: onFault,
		seen:    make(map[string]int),
	}
}

// Go runs fn on a new goroutine with panic containment attributed to
// component.
func (g *Guard) Go(component string, fn func()) {
	go func() {
		defer g.contain(component)
		fn()
	}()
}

// Do runs fn on the calling goroutine with panic containment. It reports
// whether fn panicked.
func (g *Guard) Do(component string, fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			g.report(component, r, debug.Stack())
		}
	}()
	fn()
	return false
}

// Reset clears the coalescing state. The bridge calls it on restart so a
// fresh run reports its own failures in full.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	clear(g.seen)
}

// contain is the deferred recovery point for Go.
func (g *Guard) contain(component string) {
	if r := recover(); r != nil {
		g.report(component, r, debug.Stack())
	}
}

// report emits one Diagnostic per distinct component/message signature.
// Duplicates only bump a counter.
func (g *Guard) report(component string, r any, stack []byte) {
	msg := fmt.Sprintf("panic: %v", r)
	sig := component + "\x00" + msg

	g.mu.Lock()
	g.seen[sig]++
	count := g.seen[sig]
	g.mu.Unlock()

	if count > 1 {
		return
	}

	d := diag.Diagnostic{
		Component: component,
		Message:   msg,
		Stack:     string(stack),
		Time:      time.Now(),
	}
	g.sink.Report(d)

	if g.onFault != nil {
		g.onFault(d)
	}
}

var (
	defaultGuard *Guard
	defaultOnce  sync.Once
)

// Install initializes the process-wide default guard on first call and
// returns it. Later calls return the existing guard regardless of
// arguments; the hook stays installed for the life of the process.
func Install(sink diag.Sink, onFault func(diag.Diagnostic)) *Guard {
	defaultOnce.Do(func() {
		defaultGuard = New(sink, onFault)
	})
	return defaultGuard
}
