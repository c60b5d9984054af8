package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KnownOps(t *testing.T) {
	for _, op := range []string{OpScan, OpStopScan, OpStopAllDevices, OpRequestVersion} {
		cmd, err := Decode(`{"op":"` + op + `"}`)
		require.NoError(t, err, op)
		assert.Equal(t, op, cmd.Op)
		assert.Nil(t, cmd.Args)
	}
}

func TestDecode_StopDeviceArgs(t *testing.T) {
	cmd, err := Decode(`{"op":"stopDevice","args":{"index":3}}`)
	require.NoError(t, err)

	var args StopDeviceArgs
	require.NoError(t, json.Unmarshal(cmd.Args, &args))
	assert.Equal(t, uint32(3), args.Index)
}

func TestDecode_MalformedJSON(t *testing.T) {
	for _, payload := range []string{"", "{", "not json", `42`} {
		_, err := Decode(payload)
		require.Error(t, err, payload)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, Malformed, de.Kind)
	}
}

func TestDecode_MissingOp(t *testing.T) {
	_, err := Decode(`{"args":{"index":1}}`)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, Malformed, de.Kind)
	assert.Contains(t, de.Detail, "missing op")
}

func TestDecode_UnknownOp(t *testing.T) {
	_, err := Decode(`{"op":"selfDestruct"}`)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, UnknownOp, de.Kind)
	assert.Equal(t, "selfDestruct", de.Detail)
	assert.Contains(t, de.Error(), "selfDestruct")
}

func TestEncode_DeviceFound(t *testing.T) {
	payload := Encode(DeviceFound(2, "Aurora Wand", "C4:2F:90:11:5A:01", "bedside"))

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(payload), &ev))
	assert.Equal(t, EventDeviceFound, ev.Type)
	require.NotNil(t, ev.Index)
	assert.Equal(t, uint32(2), *ev.Index)
	assert.Equal(t, "Aurora Wand", ev.Name)
	assert.Equal(t, "bedside", ev.DisplayName)
}

func TestEncode_OmitsUnsetFields(t *testing.T) {
	payload := Encode(Event{Type: EventEngineStopped})
	assert.JSONEq(t, `{"event":"engineStopped"}`, payload)
}

func TestEncode_BatteryLevelZeroIsPresent(t *testing.T) {
	// A battery level of zero is a real reading; the pointer field keeps it
	// from being folded into "absent".
	payload := Encode(BatteryLevel(0, 0))
	assert.JSONEq(t, `{"event":"batteryLevel","index":0,"batteryLevel":0}`, payload)
}

func TestEncode_RoundTrip(t *testing.T) {
	events := []Event{
		EngineError("boom"),
		DeviceRemoved(9),
		DeviceStopped(1),
		LogLine("info", "engine up"),
		{Type: EventServerVersion, Version: "v1"},
	}

	for _, in := range events {
		var out Event
		require.NoError(t, json.Unmarshal([]byte(Encode(in)), &out))
		assert.Equal(t, in, out)
	}
}
