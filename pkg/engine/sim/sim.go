// Package sim provides an in-process simulated device engine implementing
// the bridge's engine contract. It answers scans from a fixed device table,
// reports battery levels, and can inject failures on demand. The demo host
// and the bridge tests run against it; a production build swaps in the real
// device stack through the same Factory seam.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hapticsuite/buzzbridge/pkg/engine"
	"github.com/hapticsuite/buzzbridge/pkg/queue"
	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

// Version is the simulated server version reported to requestVersion.
const Version = "buzzbridge-sim/1.2.0"

// Device is one entry in the simulated device table.
type Device struct {
	Index       uint32  `json:"index"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	DisplayName string  `json:"displayName,omitempty"`
	Battery     float64 `json:"battery,omitempty"`
}

// defaultDevices is the table used when no device config is supplied.
var defaultDevices = []Device{
	{Index: 0, Name: "Aurora Wand", Address: "C4:2F:90:11:5A:01", Battery: 0.92},
	{Index: 1, Name: "Pulse Ring", Address: "C4:2F:90:11:5A:02", Battery: 0.58},
}

// Engine is the simulated engine. Create it with New; the zero value is not
// usable.
type Engine struct {
	opts    engine.Options
	emit    engine.Emitter
	devices []Device

	commands *queue.Queue[wire.Command]
	scanning atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}

	// batteryInterval is shortened by tests.
	batteryInterval time.Duration
}

// New constructs a simulated engine. When opts.DeviceConfigJSON is set it
// must hold a JSON array of devices; a malformed document is a construction
// error, mirroring how a real engine rejects a bad device config.
func New(opts engine.Options, emit engine.Emitter) (*Engine, error) {
	devices := defaultDevices
	if opts.DeviceConfigJSON != "" {
		var parsed []Device
		if err := json.Unmarshal([]byte(opts.DeviceConfigJSON), &parsed); err != nil {
			return nil, fmt.Errorf("sim: device config: %w", err)
		}
		devices = parsed
	}

	return &Engine{
		opts:            opts,
		emit:            emit,
		devices:         devices,
		commands:        queue.New[wire.Command](),
		stop:            make(chan struct{}),
		batteryInterval: 15 * time.Second,
	}, nil
}

// Factory adapts New to the engine.Factory seam.
func Factory(opts engine.Options, emit engine.Emitter) (engine.Engine, error) {
	return New(opts, emit)
}

// Run implements engine.Engine. It emits engineStarted, serves commands
// until stopped, then emits engineStopped on the way out.
func (e *Engine) Run(ctx context.Context) error {
	e.emit(wire.Event{Type: wire.EventEngineStarted, Name: e.opts.ServerName})

	if e.opts.CrashTaskThread {
		panic("sim: crash requested on task thread")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	// Battery reporting runs beside the command loop, the way a real stack
	// multiplexes protocol timers with client traffic.
	var timers sync.WaitGroup
	timers.Add(1)
	go func() {
		defer timers.Done()
		ticker := time.NewTicker(e.batteryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				e.reportBatteries()
			}
		}
	}()

	for {
		cmd, err := e.commands.Pop(runCtx)
		if err != nil {
			break
		}
		e.handle(cmd)
	}

	cancel()
	timers.Wait()
	e.commands.Close()
	e.emit(wire.Event{Type: wire.EventEngineStopped})
	return nil
}

// Submit implements engine.Engine.
func (e *Engine) Submit(cmd wire.Command) error {
	if err := e.commands.Push(cmd); err != nil {
		return engine.ErrStopped
	}
	return nil
}

// Stop implements engine.Engine.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *Engine) handle(cmd wire.Command) {
	switch cmd.Op {
	case wire.OpScan:
		e.scanning.Store(true)
		for _, d := range e.devices {
			e.emit(wire.DeviceFound(d.Index, d.Name, d.Address, d.DisplayName))
		}
		e.emit(wire.Event{Type: wire.EventScanningFinished})
	case wire.OpStopScan:
		e.scanning.Store(false)
		e.emit(wire.Event{Type: wire.EventScanningFinished})
	case wire.OpStopDevice:
		var args wire.StopDeviceArgs
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			e.emit(wire.EngineError(fmt.Sprintf("sim: stopDevice args: %v", err)))
			return
		}
		e.emit(wire.DeviceStopped(args.Index))
	case wire.OpStopAllDevices:
		for _, d := range e.devices {
			e.emit(wire.DeviceStopped(d.Index))
		}
	case wire.OpRequestVersion:
		e.emit(wire.Event{Type: wire.EventServerVersion, Version: Version})
	default:
		// The codec screens ops before they get here; an unknown op is a
		// wiring bug, not a user error.
		e.emit(wire.EngineError("sim: unhandled op " + cmd.Op))
	}
}

func (e *Engine) reportBatteries() {
	if !e.scanning.Load() {
		return
	}
	for _, d := range e.devices {
		e.emit(wire.BatteryLevel(d.Index, d.Battery))
	}
}
