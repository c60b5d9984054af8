package engine

// Options carries the engine configuration handed over the boundary at
// start. Field names are the boundary's JSON contract; hosts serialize an
// options object and the bridge passes it through untouched. Transport
// toggles mirror what a full device stack exposes even though a given
// engine build may honor only a subset.
type Options struct {
	ServerName string `json:"serverName,omitempty"`

	// Raw device and user configuration documents, forwarded verbatim to
	// the engine's own configuration loader.
	DeviceConfigJSON     string `json:"deviceConfigJson,omitempty"`
	UserDeviceConfigJSON string `json:"userDeviceConfigJson,omitempty"`

	MaxPingTime      uint32 `json:"maxPingTime,omitempty"`
	AllowRawMessages bool   `json:"allowRawMessages,omitempty"`

	// Transport toggles.
	UseBluetoothLE    bool    `json:"useBluetoothLe,omitempty"`
	UseSerialPort     bool    `json:"useSerialPort,omitempty"`
	UseHID            bool    `json:"useHid,omitempty"`
	UseXInput         bool    `json:"useXinput,omitempty"`
	UseLovenseConnect bool    `json:"useLovenseConnect,omitempty"`
	WebsocketPort     *uint16 `json:"websocketPort,omitempty"`

	// Failure-injection hooks for exercising the containment path. Real
	// engine builds ignore them.
	CrashTaskThread bool `json:"crashTaskThread,omitempty"`
}
