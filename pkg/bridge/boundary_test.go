package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hapticsuite/buzzbridge/pkg/engine/sim"
	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

func TestManager_StartJSON_BadConfig(t *testing.T) {
	m := New(fakeFactory(nil, nil), nil, Options{})

	st := m.StartJSON("{nope")
	assert.Equal(t, CodeBadConfig, st.Code)
	assert.NotEmpty(t, st.Message)
	assert.Equal(t, Uninitialized, m.State())
}

func TestManager_StartJSON_AlreadyRunning(t *testing.T) {
	host := newHostRecorder()
	m := New(fakeFactory(nil, nil), host.callback, Options{})

	require.Equal(t, CodeOK, m.StartJSON("").Code)
	defer m.StopJSON()

	st := m.StartJSON("")
	assert.Equal(t, CodeAlreadyRunning, st.Code)
}

func TestManager_SendCommandJSON_BadPayloadKeepsState(t *testing.T) {
	host := newHostRecorder()
	sink := &countSink{}
	m := New(fakeFactory(nil, nil), host.callback, Options{Sink: sink})

	require.Equal(t, CodeOK, m.StartJSON("").Code)
	defer m.StopJSON()

	for _, payload := range []string{"garbage", `{"op":"warpDrive"}`, `{"args":{}}`} {
		st := m.SendCommandJSON(payload)
		assert.Equal(t, CodeBadCommand, st.Code, payload)
		assert.Equal(t, "running", m.PollState(), payload)
	}

	// Each rejected payload leaves a trace for the crash funnel.
	assert.Len(t, sink.byComponent("wire"), 3)

	// The session is still healthy.
	assert.Equal(t, CodeOK, m.SendCommandJSON(`{"op":"scan"}`).Code)
}

func TestManager_SendCommandJSON_NotRunning(t *testing.T) {
	m := New(fakeFactory(nil, nil), nil, Options{})
	st := m.SendCommandJSON(`{"op":"scan"}`)
	assert.Equal(t, CodeNotRunning, st.Code)
}

func TestManager_PollState(t *testing.T) {
	host := newHostRecorder()
	m := New(fakeFactory(nil, nil), host.callback, Options{})

	assert.Equal(t, "uninitialized", m.PollState())
	require.Equal(t, CodeOK, m.StartJSON("").Code)
	assert.Equal(t, "running", m.PollState())
	require.Equal(t, CodeOK, m.StopJSON().Code)
	assert.Equal(t, "stopped", m.PollState())
}

func TestBoundary_FullScenario(t *testing.T) {
	host := newHostRecorder()
	m := New(fakeFactory(nil, nil), host.callback, Options{})

	require.Equal(t, CodeOK, m.StartJSON(`{"gracePeriodMs":1000}`).Code)
	host.waitForType(t, wire.EventEngineStarted)

	require.Equal(t, CodeOK, m.SendCommandJSON(`{"op":"scan"}`).Code)
	ev := host.waitForType(t, wire.EventLog)
	assert.Equal(t, "handled scan", ev.Message)

	require.Equal(t, CodeOK, m.StopJSON().Code)
	host.waitForType(t, wire.EventEngineStopped)
	assert.Equal(t, "stopped", m.PollState())
}

func TestBoundary_ScanScenarioWithSimEngine(t *testing.T) {
	host := newHostRecorder()
	m := New(sim.Factory, host.callback, Options{})

	require.Equal(t, CodeOK, m.StartJSON("{}").Code)
	require.Equal(t, CodeOK, m.SendCommandJSON(`{"op":"scan"}`).Code)

	found := host.waitForType(t, wire.EventDeviceFound)
	assert.NotEmpty(t, found.Name)
	require.NotNil(t, found.Index)

	start := time.Now()
	require.Equal(t, CodeOK, m.StopJSON().Code)
	assert.Less(t, time.Since(start), DefaultGracePeriod)
	assert.Equal(t, "stopped", m.PollState())
	host.waitForType(t, wire.EventEngineStopped)
}

func TestDefaultBoundary_RequiresConfigure(t *testing.T) {
	// The default bridge is process-global; reset it for the test and
	// leave it unconfigured afterwards.
	t.Cleanup(func() { Configure(nil, nil, Options{}) })
	Configure(nil, nil, Options{})

	st := Start("")
	assert.Equal(t, CodeInternal, st.Code)
	assert.Equal(t, "uninitialized", PollState())
	assert.Equal(t, CodeOK, Stop().Code)
	assert.Equal(t, CodeNotRunning, SendCommand(`{"op":"scan"}`).Code)
}

func TestDefaultBoundary_Lifecycle(t *testing.T) {
	t.Cleanup(func() {
		Stop()
		Configure(nil, nil, Options{})
	})

	host := newHostRecorder()
	Configure(fakeFactory(nil, nil), host.callback, Options{})

	require.Equal(t, CodeOK, Start("").Code)
	assert.Equal(t, "running", PollState())
	require.Equal(t, CodeOK, SendCommand(`{"op":"requestVersion"}`).Code)
	require.Equal(t, CodeOK, Stop().Code)
	assert.Equal(t, "stopped", PollState())
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		Uninitialized: "uninitialized",
		Starting:      "starting",
		Running:       "running",
		Stopping:      "stopping",
		Stopped:       "stopped",
		Faulted:       "faulted",
		State(99):     "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultGracePeriod, cfg.gracePeriod())

	cfg, err = ParseConfig(`{"engine":{"serverName":"s1"},"gracePeriodMs":250}`)
	require.NoError(t, err)
	assert.Equal(t, "s1", cfg.Engine.ServerName)
	assert.Equal(t, 250, cfg.GracePeriodMS)

	_, err = ParseConfig("{bad")
	require.Error(t, err)
}
