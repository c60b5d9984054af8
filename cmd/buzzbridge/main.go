// Command buzzbridge is a terminal host for the bridge: a single-threaded
// bubbletea event loop driving the engine through the same boundary a
// mobile shell would use, with the simulated engine standing in for the
// real device stack. Useful for poking at lifecycle behavior without
// flashing anything onto a phone.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hapticsuite/buzzbridge/pkg/bridge"
	"github.com/hapticsuite/buzzbridge/pkg/diag"
	"github.com/hapticsuite/buzzbridge/pkg/engine"
	"github.com/hapticsuite/buzzbridge/pkg/engine/sim"
	"github.com/hapticsuite/buzzbridge/pkg/wsfrontend"
)

func main() {
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	logPath := flag.String("log", "", "write bridge logs to this file (TUI swallows stderr)")
	setup := flag.Bool("setup", false, "edit engine options interactively before starting")
	wsPort := flag.Int("ws-port", 0, "also serve events to a websocket frontend on this port")
	graceMS := flag.Int("grace-ms", 0, "stop grace period in milliseconds (0 = default)")
	crash := flag.Bool("crash-task", false, "ask the sim engine to panic on its task thread")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*logPath, *setup, *wsPort, *graceMS, *crash); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads the env file when present. A missing file is fine; an
// unreadable one is not.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func run(logPath string, setup bool, wsPort, graceMS int, crash bool) error {
	cfg := bridge.Config{GracePeriodMS: graceMS}
	cfg.Engine = engine.Options{
		ServerName:      envOr("BUZZBRIDGE_SERVER_NAME", "buzzbridge-console"),
		UseBluetoothLE:  true,
		CrashTaskThread: crash,
	}
	if wsPort == 0 {
		if p, err := strconv.Atoi(os.Getenv("BUZZBRIDGE_WS_PORT")); err == nil {
			wsPort = p
		}
	}

	if setup {
		if err := runOptionsForm(&cfg); err != nil {
			return err
		}
	}

	log := zap.NewNop()
	if logPath != "" {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.OutputPaths = []string{logPath}
		var err error
		if log, err = zcfg.Build(); err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer func() { _ = log.Sync() }()
	}

	sink := diag.NewAsyncSink(diag.NewLogSink(log))
	defer sink.Close()

	// Serialized dispatch feeds this channel; the model re-arms a read
	// after every message, so the send only ever waits on the UI loop.
	// front is bound below, before the program (and thus any dispatch
	// goroutine) starts.
	events := make(chan string, 64)
	var front *wsfrontend.Server
	callback := func(payload string) {
		if front != nil {
			front.Publish(payload)
		}
		events <- payload
	}

	manager := bridge.New(sim.Factory, callback, bridge.Options{
		Logger: log,
		Sink:   sink,
	})

	if wsPort > 0 {
		front = wsfrontend.New(manager, log)
		defer front.Close()
		go func() {
			addr := fmt.Sprintf("127.0.0.1:%d", wsPort)
			if err := http.ListenAndServe(addr, front); err != nil {
				log.Error("websocket frontend stopped", zap.Error(err))
			}
		}()
	}

	model := newAppModel(manager, cfg, events)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	// Make sure the engine is down before the process exits.
	manager.StopJSON()
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
