package bridge

import (
	"errors"
	"sync"
	"time"

	"github.com/hapticsuite/buzzbridge/pkg/diag"
	"github.com/hapticsuite/buzzbridge/pkg/engine"
	"github.com/hapticsuite/buzzbridge/pkg/hostcall"
	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

// Boundary status codes. The boundary surface only speaks status codes and
// string payloads; hosts that can consume Go errors should use the Manager
// directly.
const (
	CodeOK             = 0
	CodeAlreadyRunning = 1
	CodeNotRunning     = 2
	CodeBadConfig      = 3
	CodeBadCommand     = 4
	CodeInternal       = 5
)

// Status is the synchronous result of a boundary call.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func ok() Status { return Status{Code: CodeOK} }

func failure(code int, msg string) Status { return Status{Code: code, Message: msg} }

// StartJSON is the boundary form of Start: configJSON is a serialized
// Config ("" or "{}" for defaults).
func (m *Manager) StartJSON(configJSON string) Status {
	cfg, err := ParseConfig(configJSON)
	if err != nil {
		return failure(CodeBadConfig, err.Error())
	}
	switch err := m.Start(cfg); {
	case err == nil:
		return ok()
	case errors.Is(err, ErrAlreadyRunning):
		return failure(CodeAlreadyRunning, err.Error())
	default:
		return failure(CodeInternal, err.Error())
	}
}

// SendCommandJSON decodes and enqueues a boundary command payload. A
// payload that fails to decode is dropped and reported as a Diagnostic;
// it never changes the lifecycle state.
func (m *Manager) SendCommandJSON(commandJSON string) Status {
	cmd, err := wire.Decode(commandJSON)
	if err != nil {
		m.sink.Report(diag.Diagnostic{
			Component: "wire",
			Message:   err.Error(),
			Time:      time.Now(),
		})
		return failure(CodeBadCommand, err.Error())
	}
	switch err := m.SendCommand(cmd); {
	case err == nil:
		return ok()
	case errors.Is(err, ErrNotRunning):
		return failure(CodeNotRunning, err.Error())
	default:
		return failure(CodeInternal, err.Error())
	}
}

// StopJSON is the boundary form of Stop.
func (m *Manager) StopJSON() Status {
	if err := m.Stop(); err != nil {
		return failure(CodeInternal, err.Error())
	}
	return ok()
}

// PollState returns the boundary name of the current lifecycle state.
func (m *Manager) PollState() string {
	return m.State().String()
}

// The default bridge is the package-level singleton behind the exported
// boundary functions, for hosts (FFI stubs, generated glue) that cannot
// hold a Manager. The platform glue wires it once at process start; at
// most one engine ever exists behind it.
var (
	defaultMu       sync.Mutex
	defaultBridge   *Manager
	defaultFactory  engine.Factory
	defaultCallback hostcall.Callback
	defaultOpts     Options
)

// Configure sets the engine factory, host callback, and options used by the
// exported boundary functions. It must be called before Start and replaces
// any previous configuration; it does not touch a bridge that is already
// running.
func Configure(factory engine.Factory, callback hostcall.Callback, opts Options) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultFactory = factory
	defaultCallback = callback
	defaultOpts = opts
	defaultBridge = nil
}

// Start starts the default bridge with the given boundary config payload.
func Start(configJSON string) Status {
	defaultMu.Lock()
	if defaultFactory == nil {
		defaultMu.Unlock()
		return failure(CodeInternal, "bridge: no engine factory configured")
	}
	if defaultBridge == nil {
		defaultBridge = New(defaultFactory, defaultCallback, defaultOpts)
	}
	b := defaultBridge
	defaultMu.Unlock()

	return b.StartJSON(configJSON)
}

// SendCommand enqueues a boundary command payload on the default bridge.
func SendCommand(commandJSON string) Status {
	b := current()
	if b == nil {
		return failure(CodeNotRunning, ErrNotRunning.Error())
	}
	return b.SendCommandJSON(commandJSON)
}

// Stop stops the default bridge.
func Stop() Status {
	b := current()
	if b == nil {
		return ok() // nothing ever started; stop is a no-op success
	}
	return b.StopJSON()
}

// PollState reports the default bridge's lifecycle state name.
func PollState() string {
	b := current()
	if b == nil {
		return Uninitialized.String()
	}
	return b.PollState()
}

func current() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	return defaultBridge
}
