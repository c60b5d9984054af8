package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/hapticsuite/buzzbridge/pkg/bridge"
)

// runOptionsForm lets the user edit engine options before the console
// starts. Only the options the sim engine reacts to get fields; the rest
// keep whatever the flags and environment put in cfg.
func runOptionsForm(cfg *bridge.Config) error {
	grace := ""
	if cfg.GracePeriodMS > 0 {
		grace = strconv.Itoa(cfg.GracePeriodMS)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server name").
				Description("Reported to clients in the engineStarted event.").
				Value(&cfg.Engine.ServerName),
			huh.NewText().
				Title("Device config JSON").
				Description("Optional device list; leave empty for the built-in set.").
				Value(&cfg.Engine.DeviceConfigJSON),
			huh.NewConfirm().
				Title("Bluetooth LE").
				Value(&cfg.Engine.UseBluetoothLE),
			huh.NewConfirm().
				Title("Allow raw messages").
				Value(&cfg.Engine.AllowRawMessages),
			huh.NewInput().
				Title("Grace period (ms)").
				Description("How long stop waits before forcing teardown. Empty for default.").
				Value(&grace).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return fmt.Errorf("must be a non-negative integer")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup form: %w", err)
	}

	if grace == "" {
		cfg.GracePeriodMS = 0
	} else {
		cfg.GracePeriodMS, _ = strconv.Atoi(grace)
	}
	return nil
}
