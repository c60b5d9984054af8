// Package hostcall delivers event payloads to the host callback. Some host
// runtimes (a JVM reached over JNI, for example) only accept calls from
// threads that have been registered with them; the Attacher capability
// models that requirement so the dispatch loop can pin its goroutine to an
// OS thread, register it once, and deliver every callback from it. Hosts
// without the requirement use NoopAttacher and pay nothing.
package hostcall

import (
	"runtime"
	"time"

	"github.com/hapticsuite/buzzbridge/pkg/diag"
)

// Callback is the host's event receiver. The bridge guarantees calls are
// serialized and ordered as produced.
type Callback func(payload string)

// Attacher registers the calling thread with the host runtime. Attach
// returns the matching detach, to be run on the same thread before it
// exits. Attach is invoked at most once per dispatch thread.
type Attacher interface {
	Attach() (detach func(), err error)
}

// NoopAttacher is for host runtimes that accept calls from any thread.
type NoopAttacher struct{}

// Attach implements Attacher.
func (NoopAttacher) Attach() (func(), error) {
	return func() {}, nil
}

// ManagedAttacher adapts a host runtime's thread registration hooks, the
// AttachCurrentThread/DetachCurrentThread shape. The hooks are supplied by
// the platform glue at construction time.
type ManagedAttacher struct {
	attach func() error
	detach func()
}

// NewManagedAttacher builds an Attacher from the given hooks. detach may be
// nil when the runtime has no teardown step.
func NewManagedAttacher(attach func() error, detach func()) *ManagedAttacher {
	return &ManagedAttacher{attach: attach, detach: detach}
}

// Attach implements Attacher.
func (a *ManagedAttacher) Attach() (func(), error) {
	if err := a.attach(); err != nil {
		return nil, err
	}
	if a.detach == nil {
		return func() {}, nil
	}
	return a.detach, nil
}

// Invoker owns callback delivery for a single dispatch goroutine. It is not
// safe for concurrent use; the dispatch loop is the only caller, which is
// what serializes callbacks.
type Invoker struct {
	attacher Attacher
	callback Callback
	sink     diag.Sink

	bound    bool
	failed   bool
	reported bool
	detach   func()
}

// NewInvoker creates an Invoker delivering to callback through attacher.
// Diagnostics (attach failures, skipped callbacks) go to sink.
func NewInvoker(attacher Attacher, callback Callback, sink diag.Sink) *Invoker {
	if attacher == nil {
		attacher = NoopAttacher{}
	}
	if sink == nil {
		sink = diag.NopSink{}
	}
	return &Invoker{attacher: attacher, callback: callback, sink: sink}
}

// Bind pins the calling goroutine to its OS thread and attaches the thread
// to the host runtime. It is idempotent. On failure the thread stays
// unattached and every later Invoke is skipped with a Diagnostic.
func (in *Invoker) Bind() error {
	if in.bound || in.failed {
		return nil
	}

	runtime.LockOSThread()
	detach, err := in.attacher.Attach()
	if err != nil {
		runtime.UnlockOSThread()
		in.failed = true
		in.sink.Report(diag.Diagnostic{
			Component: "hostcall",
			Message:   "host runtime attach failed: " + err.Error(),
			Time:      time.Now(),
		})
		return err
	}

	in.bound = true
	in.detach = detach
	return nil
}

// Invoke delivers payload to the host callback. A skipped delivery (no
// callback registered, or the thread never attached) is preferred to an
// invalid cross-runtime call; the first skip after an attach failure raises
// a Diagnostic.
func (in *Invoker) Invoke(payload string) {
	if !in.bound || in.callback == nil {
		if in.failed && !in.reported {
			in.reported = true
			in.sink.Report(diag.Diagnostic{
				Component: "hostcall",
				Message:   "dropping callbacks: dispatch thread is not attached to the host runtime",
				Time:      time.Now(),
			})
		}
		return
	}
	in.callback(payload)
}

// Release detaches the thread from the host runtime and releases the OS
// thread pin. It must be called from the goroutine that called Bind.
func (in *Invoker) Release() {
	if !in.bound {
		return
	}
	in.bound = false
	in.detach()
	runtime.UnlockOSThread()
}
