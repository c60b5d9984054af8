// Package wire defines the command and event values that cross the host
// boundary and their JSON wire form. The boundary only carries strings, so
// every structured value is encoded to a single JSON document: commands flow
// host → engine, events flow engine → host.
package wire

import (
	"encoding/json"
	"fmt"
)

// Command operation names accepted from the host.
const (
	OpScan           = "scan"
	OpStopScan       = "stopScan"
	OpStopDevice     = "stopDevice"
	OpStopAllDevices = "stopAllDevices"
	OpRequestVersion = "requestVersion"
)

// knownOps is the set of operations Decode accepts. Anything else is an
// unknown variant, reported but never fatal.
var knownOps = map[string]struct{}{
	OpScan:           {},
	OpStopScan:       {},
	OpStopDevice:     {},
	OpStopAllDevices: {},
	OpRequestVersion: {},
}

// Command names an operation and carries its arguments. It is immutable once
// created; ownership transfers to the engine side when accepted into the
// command channel.
type Command struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// StopDeviceArgs are the arguments for the stopDevice operation.
type StopDeviceArgs struct {
	Index uint32 `json:"index"`
}

// DecodeKind classifies a decode failure.
type DecodeKind int

const (
	// Malformed means the payload was not a valid command document.
	Malformed DecodeKind = iota
	// UnknownOp means the document was well formed but named an operation
	// this bridge does not recognize.
	UnknownOp
)

// DecodeError reports why a payload could not be decoded into a Command.
// A decode failure drops the single command; it never changes bridge state.
type DecodeError struct {
	Kind   DecodeKind
	Detail string
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case UnknownOp:
		return fmt.Sprintf("wire: unknown op %s", e.Detail)
	default:
		return fmt.Sprintf("wire: malformed command: %s", e.Detail)
	}
}

// Decode parses a boundary payload into a Command. It returns a *DecodeError
// with Kind Malformed for invalid JSON or structure, and Kind UnknownOp for
// an unrecognized operation name.
func Decode(payload string) (Command, error) {
	var cmd Command
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		return Command{}, &DecodeError{Kind: Malformed, Detail: err.Error()}
	}
	if cmd.Op == "" {
		return Command{}, &DecodeError{Kind: Malformed, Detail: "missing op field"}
	}
	if _, ok := knownOps[cmd.Op]; !ok {
		return Command{}, &DecodeError{Kind: UnknownOp, Detail: cmd.Op}
	}
	return cmd, nil
}
