package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hapticsuite/buzzbridge/pkg/bridge"
	"github.com/hapticsuite/buzzbridge/pkg/engine/sim"
	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

func newTestModel(t *testing.T) appModel {
	t.Helper()

	events := make(chan string, 16)
	manager := bridge.New(sim.Factory, func(p string) { events <- p }, bridge.Options{})
	t.Cleanup(func() { manager.StopJSON() })
	return newAppModel(manager, bridge.Config{}, events)
}

func TestRenderEvent_DeviceFound(t *testing.T) {
	line := renderEvent(wire.Encode(wire.DeviceFound(1, "Pulse Ring", "C4:2F:90:11:5A:02", "")))
	assert.Contains(t, line, "Pulse Ring")
	assert.Contains(t, line, "#1")
}

func TestRenderEvent_DisplayNameWins(t *testing.T) {
	line := renderEvent(wire.Encode(wire.DeviceFound(0, "Aurora Wand", "C4:2F:90:11:5A:01", "bedside")))
	assert.Contains(t, line, "bedside")
	assert.NotContains(t, line, "Aurora Wand")
}

func TestRenderEvent_UndecodablePayloadShownRaw(t *testing.T) {
	line := renderEvent("not json at all")
	assert.Contains(t, line, "not json at all")
}

func TestRenderEvent_Battery(t *testing.T) {
	line := renderEvent(wire.Encode(wire.BatteryLevel(0, 0.92)))
	assert.Contains(t, line, "92%")
}

func TestAppModel_EventMsgAppendsAndRearms(t *testing.T) {
	m := newTestModel(t)

	updated, cmd := m.Update(eventMsg{payload: wire.Encode(wire.EngineError("boom"))})
	model := updated.(appModel)
	require.Len(t, model.lines, 1)
	assert.Contains(t, model.lines[0], "boom")
	assert.NotNil(t, cmd, "the event reader must be re-armed")
}

func TestAppModel_LogIsBounded(t *testing.T) {
	m := newTestModel(t)

	var model tea.Model = m
	for i := 0; i < maxLogLines+50; i++ {
		model, _ = model.(appModel).Update(eventMsg{payload: wire.Encode(wire.LogLine("info", "x"))})
	}
	assert.Len(t, model.(appModel).lines, maxLogLines)
}

func TestAppModel_StatusTick(t *testing.T) {
	m := newTestModel(t)

	updated, cmd := m.Update(statusTickMsg{})
	assert.Equal(t, "uninitialized", updated.(appModel).state)
	assert.NotNil(t, cmd, "the status ticker must be re-armed")
}

func TestAppModel_QuitKey(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
