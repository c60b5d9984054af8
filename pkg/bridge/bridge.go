// Package bridge owns the lifecycle of the wrapped device engine and moves
// messages between it and a host whose loop must never block. The Manager
// runs the engine on a dedicated background execution context, feeds it
// commands through an unbounded FIFO, and delivers every event, in
// production order and one at a time, to a single host callback. Failures
// inside the background context are contained: they fault the bridge and
// surface as diagnostics and error events, never as a crash of the host
// process.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hapticsuite/buzzbridge/pkg/diag"
	"github.com/hapticsuite/buzzbridge/pkg/engine"
	"github.com/hapticsuite/buzzbridge/pkg/hostcall"
	"github.com/hapticsuite/buzzbridge/pkg/panicguard"
	"github.com/hapticsuite/buzzbridge/pkg/queue"
	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

var (
	// ErrAlreadyRunning is returned by Start while a previous start is
	// still in effect. The call has no side effects.
	ErrAlreadyRunning = errors.New("bridge: already running")

	// ErrNotRunning is returned by SendCommand outside the Running state.
	ErrNotRunning = errors.New("bridge: not running")

	// ErrChannelClosed is returned by SendCommand when the engine side has
	// already released the command channel.
	ErrChannelClosed = errors.New("bridge: command channel closed")
)

// Options are the Manager's optional collaborators. Zero values select a
// nop logger, a nop sink, and the no-op attacher.
type Options struct {
	Logger   *zap.Logger
	Sink     diag.Sink
	Attacher hostcall.Attacher
}

// Manager is the only component the host calls directly. One Manager owns
// at most one live engine; a second Start while one is running is rejected,
// not queued. All methods are safe for concurrent use; Start and Stop are
// serialized against each other and may take bounded wall-clock time, while
// SendCommand and State return immediately.
type Manager struct {
	factory  engine.Factory
	callback hostcall.Callback
	attacher hostcall.Attacher
	sink     diag.Sink
	log      *zap.Logger
	guard    *panicguard.Guard

	opMu sync.Mutex // serializes Start and Stop

	mu    sync.Mutex // guards state and sess
	state State
	sess  *session
}

// session is the per-start background context: the engine handle, the two
// channel directions, and the goroutine completion signals. It is created
// by Start and released by Stop or a faulted restart.
type session struct {
	cancel   context.CancelFunc
	eng      engine.Engine
	commands *queue.Queue[wire.Command]
	events   *queue.Queue[wire.Event]

	runDone      chan struct{}
	dispatchDone chan struct{}
	grace        time.Duration
}

// New creates a Manager that builds engines with factory and delivers event
// payloads to callback.
func New(factory engine.Factory, callback hostcall.Callback, opts Options) *Manager {
	m := &Manager{
		factory:  factory,
		callback: callback,
		attacher: opts.Attacher,
		sink:     opts.Sink,
		log:      opts.Logger,
	}
	if m.attacher == nil {
		m.attacher = hostcall.NoopAttacher{}
	}
	if m.sink == nil {
		m.sink = diag.NopSink{}
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	m.guard = panicguard.New(m.sink, m.fault)
	return m
}

// State returns a snapshot of the lifecycle state. It never blocks on
// engine activity.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// QueueDepth reports how many events are waiting for dispatch to the host.
// Zero when no session is live.
func (m *Manager) QueueDepth() int {
	m.mu.Lock()
	s := m.sess
	m.mu.Unlock()

	if s == nil {
		return 0
	}
	return s.events.Len()
}

// Start brings up the background execution context and constructs the
// engine inside it. It returns once the engine is constructed and wired,
// or with an error: ErrAlreadyRunning when a start is already in effect
// (the bridge must be stopped first), or the construction failure, which
// leaves the bridge Faulted. Starting from Stopped or Faulted is a reset.
func (m *Manager) Start(cfg Config) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	switch m.state {
	case Starting, Running, Stopping:
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	stale := m.sess
	m.sess = nil
	m.state = Starting
	m.mu.Unlock()

	if stale != nil {
		releaseSession(stale)
	}
	m.guard.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		cancel:       cancel,
		commands:     queue.New[wire.Command](),
		events:       queue.New[wire.Event](),
		runDone:      make(chan struct{}),
		dispatchDone: make(chan struct{}),
		grace:        cfg.gracePeriod(),
	}

	m.mu.Lock()
	m.sess = s
	m.mu.Unlock()

	// Dispatch starts before construction so even a construction failure
	// reaches the host as an engineError event.
	m.guard.Go("bridge.dispatch", func() { m.dispatch(s) })

	emit := func(ev wire.Event) { _ = s.events.Push(ev) }

	type constructed struct {
		eng engine.Engine
		err error
	}
	resCh := make(chan constructed, 1)
	m.guard.Go("engine.construct", func() {
		var res constructed
		defer func() { resCh <- res }()
		res.eng, res.err = m.factory(cfg.Engine, emit)
	})

	res := <-resCh
	if res.err == nil && res.eng == nil {
		// The factory panicked; the guard has already reported it.
		res.err = errors.New("engine factory panicked")
	}
	if res.err != nil {
		m.log.Error("engine construction failed", zap.Error(res.err))
		_ = s.events.Push(wire.EngineError(res.err.Error()))
		releaseSession(s)
		awaitOrGrace(s.dispatchDone, s.grace)

		m.mu.Lock()
		m.state = Faulted
		m.mu.Unlock()
		return fmt.Errorf("bridge: engine construction: %w", res.err)
	}
	s.eng = res.eng

	m.guard.Go("bridge.commands", func() { m.pump(ctx, s) })
	m.guard.Go("engine.run", func() { m.runEngine(ctx, s) })

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Starting {
		// A guarded goroutine faulted during the startup window.
		return fmt.Errorf("bridge: start: faulted during startup")
	}
	m.state = Running
	m.log.Info("bridge running", zap.Duration("gracePeriod", s.grace))
	return nil
}

// SendCommand enqueues cmd for the engine. It never waits for processing,
// only for acceptance into the command channel.
func (m *Manager) SendCommand(cmd wire.Command) error {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	s := m.sess
	m.mu.Unlock()

	if err := s.commands.Push(cmd); err != nil {
		return ErrChannelClosed
	}
	return nil
}

// Stop shuts the engine down gracefully, drains in-flight events to the
// host for up to the grace period, then tears down the background context.
// The state always reaches Stopped from Running; a stop that had to force
// teardown is reported as a Diagnostic, not an error. Stop of a bridge
// that is Uninitialized, Stopped, or Faulted is a no-op success.
func (m *Manager) Stop() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	switch m.state {
	case Uninitialized, Stopped:
		m.mu.Unlock()
		return nil
	case Faulted:
		stale := m.sess
		m.sess = nil
		m.mu.Unlock()
		if stale != nil {
			releaseSession(stale)
		}
		return nil
	}
	s := m.sess
	m.state = Stopping
	m.mu.Unlock()

	m.log.Info("stopping engine")
	s.eng.Stop()
	s.commands.Close()

	if !awaitOrGrace(s.runDone, s.grace) {
		m.sink.Report(diag.Diagnostic{
			Component: "bridge",
			Message:   "graceful stop exceeded grace period; forcing teardown",
			Time:      time.Now(),
		})
		m.log.Warn("forcing engine teardown", zap.Duration("grace", s.grace))
		s.cancel()
		s.events.Close()
	}

	if !awaitOrGrace(s.dispatchDone, s.grace) {
		m.sink.Report(diag.Diagnostic{
			Component: "bridge",
			Message:   "event drain exceeded grace period",
			Time:      time.Now(),
		})
		s.events.Close()
	}
	s.cancel()

	m.mu.Lock()
	m.state = Stopped
	m.sess = nil
	m.mu.Unlock()

	m.log.Info("bridge stopped")
	return nil
}

// dispatch is the single consumer of the event channel. It binds its
// goroutine to the host runtime, then pushes each event through the codec
// and the callback before pulling the next, preserving producer order.
func (m *Manager) dispatch(s *session) {
	defer close(s.dispatchDone)

	inv := hostcall.NewInvoker(m.attacher, m.callback, m.sink)
	if err := inv.Bind(); err == nil {
		defer inv.Release()
	}
	// On bind failure the invoker has raised a Diagnostic and will skip
	// deliveries; keep draining so shutdown still completes.

	for {
		ev, err := s.events.Pop(context.Background())
		if err != nil {
			return
		}
		inv.Invoke(wire.Encode(ev))
	}
}

// pump feeds accepted commands to the engine in submission order.
func (m *Manager) pump(ctx context.Context, s *session) {
	for {
		cmd, err := s.commands.Pop(ctx)
		if err != nil {
			return
		}
		if err := s.eng.Submit(cmd); err != nil {
			m.log.Warn("engine rejected command", zap.String("op", cmd.Op), zap.Error(err))
		}
	}
}

// runEngine hosts the engine's Run and converts its termination into
// lifecycle signals.
func (m *Manager) runEngine(ctx context.Context, s *session) {
	defer close(s.runDone)

	var err error
	if panicked := m.guard.Do("engine.run", func() { err = s.eng.Run(ctx) }); panicked {
		// fault() has emitted the error event; make sure the channels are
		// released even when the fault raced a shutdown.
		s.commands.Close()
		s.events.Close()
		return
	}

	if err != nil {
		d := diag.Diagnostic{Component: "engine.run", Message: err.Error(), Time: time.Now()}
		m.sink.Report(d)
		m.fault(d)
	}
	s.commands.Close()
	s.events.Close()
}

// fault moves the bridge to Faulted and surfaces d as an engineError event.
// Faults raised while a stop is already tearing the session down change
// nothing; the Diagnostic has been reported either way.
func (m *Manager) fault(d diag.Diagnostic) {
	m.mu.Lock()
	switch m.state {
	case Stopping, Stopped, Uninitialized:
		m.mu.Unlock()
		return
	}
	m.state = Faulted
	s := m.sess
	m.mu.Unlock()

	m.log.Error("bridge faulted", zap.String("component", d.Component), zap.String("reason", d.Message))
	if s != nil {
		_ = s.events.Push(wire.EngineError(d.Message))
		releaseSession(s)
	}
}

// releaseSession closes both channel directions and cancels the background
// context. Safe to call more than once.
func releaseSession(s *session) {
	s.commands.Close()
	s.events.Close()
	s.cancel()
}

// awaitOrGrace waits for ch or the grace period. It reports whether ch
// fired in time.
func awaitOrGrace(ch <-chan struct{}, grace time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(grace):
		return false
	}
}
