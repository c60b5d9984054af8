package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/hapticsuite/buzzbridge/pkg/bridge"
	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

const maxLogLines = 512

// eventMsg carries one boundary payload from the bridge callback.
type eventMsg struct{ payload string }

// statusTickMsg refreshes the lifecycle snapshot in the status bar.
type statusTickMsg struct{}

// actionResultMsg reports the outcome of a boundary call issued by a key.
type actionResultMsg struct {
	action string
	status bridge.Status
}

type keyMap struct {
	Start   key.Binding
	Stop    key.Binding
	Scan    key.Binding
	StopAll key.Binding
	Version key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Scan, k.StopAll, k.Version, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
	Scan:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "scan")),
	StopAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "stop devices")),
	Version: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "version")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// appModel is the root bubbletea model. The bridge callback never touches
// it directly: payloads arrive as messages through the events channel.
type appModel struct {
	manager *bridge.Manager
	cfg     bridge.Config
	events  <-chan string

	lines   []string
	state   string
	depth   int
	spin    spinner.Model
	help    help.Model
	width   int
	height  int
}

func newAppModel(manager *bridge.Manager, cfg bridge.Config, events <-chan string) appModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return appModel{
		manager: manager,
		cfg:     cfg,
		events:  events,
		state:   manager.PollState(),
		spin:    sp,
		help:    help.New(),
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.tickStatus(), m.spin.Tick)
}

// waitForEvent re-arms after every delivered message so payloads keep
// flowing without ever being dropped.
func (m appModel) waitForEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		return eventMsg{payload: <-ch}
	}
}

func (m appModel) tickStatus() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		m.appendLine(renderEvent(msg.payload))
		return m, m.waitForEvent()

	case statusTickMsg:
		m.state = m.manager.PollState()
		m.depth = m.manager.QueueDepth()
		return m, m.tickStatus()

	case actionResultMsg:
		if msg.status.Code != bridge.CodeOK {
			m.appendLine(errorStyle.Render(fmt.Sprintf("%s: %s", msg.action, msg.status.Message)))
		}
		m.state = m.manager.PollState()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Start):
		cfg, err := json.Marshal(m.cfg)
		if err != nil {
			m.appendLine(errorStyle.Render("config: " + err.Error()))
			return m, nil
		}
		return m, m.boundaryCall("start", func() bridge.Status {
			return m.manager.StartJSON(string(cfg))
		})

	case key.Matches(msg, keys.Stop):
		return m, m.boundaryCall("stop", m.manager.StopJSON)

	case key.Matches(msg, keys.Scan):
		return m, m.sendOp(wire.OpScan)

	case key.Matches(msg, keys.StopAll):
		return m, m.sendOp(wire.OpStopAllDevices)

	case key.Matches(msg, keys.Version):
		return m, m.sendOp(wire.OpRequestVersion)
	}

	return m, nil
}

// boundaryCall runs a bridge call off the UI loop; start and stop may wait
// on engine construction or shutdown, and the loop must not.
func (m appModel) boundaryCall(action string, fn func() bridge.Status) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{action: action, status: fn()}
	}
}

func (m appModel) sendOp(op string) tea.Cmd {
	payload, _ := json.Marshal(wire.Command{Op: op})
	cmd := string(payload)
	return m.boundaryCall(op, func() bridge.Status {
		return m.manager.SendCommandJSON(cmd)
	})
}

func (m *appModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
}

// renderEvent turns a boundary payload into a display line. Payloads are
// the host-facing contract, so render defensively: an undecodable one is
// shown raw rather than hidden.
func renderEvent(payload string) string {
	var ev wire.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Type == "" {
		return rawStyle.Render(payload)
	}

	switch ev.Type {
	case wire.EventDeviceFound:
		name := ev.Name
		if ev.DisplayName != "" {
			name = ev.DisplayName
		}
		return deviceStyle.Render(fmt.Sprintf("+ %s [%s] #%d", name, ev.Address, deref(ev.Index)))
	case wire.EventDeviceRemoved:
		return deviceStyle.Render(fmt.Sprintf("- device #%d", deref(ev.Index)))
	case wire.EventDeviceStopped:
		return deviceStyle.Render(fmt.Sprintf("· device #%d stopped", deref(ev.Index)))
	case wire.EventBatteryLevel:
		level := 0.0
		if ev.Battery != nil {
			level = *ev.Battery
		}
		return infoStyle.Render(fmt.Sprintf("battery #%d %.0f%%", deref(ev.Index), level*100))
	case wire.EventEngineError:
		return errorStyle.Render("engine error: " + ev.Message)
	case wire.EventServerVersion:
		return infoStyle.Render("server " + ev.Version)
	case wire.EventLog:
		return logStyle.Render(fmt.Sprintf("[%s] %s", ev.Level, ev.Message))
	default:
		return infoStyle.Render(ev.Type)
	}
}

func deref(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}

func (m appModel) View() string {
	if m.width == 0 {
		return "loading..."
	}

	title := titleStyle.Render("buzzbridge console")

	body := m.height - 4
	if body < 1 {
		body = 1
	}
	start := 0
	if len(m.lines) > body {
		start = len(m.lines) - body
	}
	log := ""
	for _, line := range m.lines[start:] {
		log += runewidth.Truncate(line, m.width, "…") + "\n"
	}
	for i := len(m.lines) - start; i < body; i++ {
		log += "\n"
	}

	status := m.state
	if status == "starting" || status == "stopping" {
		status = m.spin.View() + " " + status
	}
	bar := statusBarStyle.Width(m.width).Render(
		fmt.Sprintf("state: %s  queue: %d", status, m.depth),
	)

	return title + "\n" + log + bar + "\n" + m.help.View(keys)
}
