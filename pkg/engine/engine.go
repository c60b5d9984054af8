// Package engine defines the contract between the bridge and the wrapped
// device-control engine. The engine is an external collaborator: the bridge
// only consumes its lifecycle (construct, run, shut down) and its two
// message directions (submit commands, receive events), never its protocol
// internals.
package engine

import (
	"context"
	"errors"

	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

// ErrStopped is returned by Submit once the engine is no longer accepting
// commands.
var ErrStopped = errors.New("engine: stopped")

// Emitter receives events produced by the engine. Implementations must not
// block; the bridge backs it with an unbounded queue.
type Emitter func(ev wire.Event)

// Engine is the capability set the bridge needs from the wrapped engine.
type Engine interface {
	// Run executes the engine until Stop is called, ctx is cancelled, or an
	// unrecoverable error occurs. It is called exactly once, on the
	// background execution context.
	Run(ctx context.Context) error

	// Submit hands a decoded command to the engine. It must not block for
	// longer than an enqueue.
	Submit(cmd wire.Command) error

	// Stop requests graceful shutdown. It is idempotent and non-blocking;
	// completion is observed as Run returning.
	Stop()
}

// Factory constructs an engine inside the background execution context.
// Events produced over the engine's lifetime go to emit. A construction
// error faults the bridge without ever exposing a half-built engine.
type Factory func(opts Options, emit Emitter) (Engine, error)
