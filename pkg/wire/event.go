package wire

import (
	"encoding/json"
	"time"
)

// Event types emitted to the host.
const (
	EventEngineStarted      = "engineStarted"
	EventEngineStopped      = "engineStopped"
	EventEngineError        = "engineError"
	EventDeviceFound        = "deviceFound"
	EventDeviceRemoved      = "deviceRemoved"
	EventDeviceStopped      = "deviceStopped"
	EventScanningFinished   = "scanningFinished"
	EventBatteryLevel       = "batteryLevel"
	EventServerVersion      = "serverVersion"
	EventClientConnected    = "clientConnected"
	EventClientDisconnected = "clientDisconnected"
	EventLog                = "log"
)

// Event describes something that happened on the engine side. Events are
// immutable, broadcast only, and delivered to the host in production order.
// Optional fields are pointers or omitted strings so the wire form stays
// minimal per event type.
type Event struct {
	Type        string     `json:"event"`
	Index       *uint32    `json:"index,omitempty"`
	Name        string     `json:"name,omitempty"`
	Address     string     `json:"address,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
	Battery     *float64   `json:"batteryLevel,omitempty"`
	Version     string     `json:"version,omitempty"`
	Level       string     `json:"level,omitempty"`
	Message     string     `json:"message,omitempty"`
	Time        *time.Time `json:"time,omitempty"`
}

// Encode serializes an Event to its boundary payload. Events are constrained
// to representable values, so encoding cannot fail.
func Encode(ev Event) string {
	// Event contains only plain marshalable fields; Marshal cannot error here.
	b, _ := json.Marshal(ev)
	return string(b)
}

// DeviceFound builds the event announcing a discovered device.
func DeviceFound(index uint32, name, address, displayName string) Event {
	return Event{
		Type:        EventDeviceFound,
		Index:       &index,
		Name:        name,
		Address:     address,
		DisplayName: displayName,
	}
}

// DeviceRemoved builds the event announcing a device disconnect.
func DeviceRemoved(index uint32) Event {
	return Event{Type: EventDeviceRemoved, Index: &index}
}

// DeviceStopped builds the event acknowledging that a device's actuators
// were halted.
func DeviceStopped(index uint32) Event {
	return Event{Type: EventDeviceStopped, Index: &index}
}

// BatteryLevel builds a battery report for a device. Level is in [0, 1].
func BatteryLevel(index uint32, level float64) Event {
	return Event{Type: EventBatteryLevel, Index: &index, Battery: &level}
}

// EngineError builds the event surfacing an engine-side failure.
func EngineError(message string) Event {
	return Event{Type: EventEngineError, Message: message}
}

// LogLine builds a log event forwarded into the host event stream.
func LogLine(level, message string) Event {
	return Event{Type: EventLog, Level: level, Message: message}
}
