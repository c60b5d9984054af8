package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hapticsuite/buzzbridge/pkg/engine"
)

// DefaultGracePeriod bounds how long Stop waits for the engine to shut
// down before the background context is torn down forcibly. Device
// disconnect paths on mobile stacks are slow, so the default leaves
// generous headroom.
const DefaultGracePeriod = 5 * time.Second

// Config is the start configuration carried over the boundary as JSON.
// The zero value is valid: default grace period, default engine options.
type Config struct {
	// Engine is passed through to the engine factory.
	Engine engine.Options `json:"engine"`

	// GracePeriodMS overrides DefaultGracePeriod when positive.
	GracePeriodMS int `json:"gracePeriodMs,omitempty"`
}

// ParseConfig decodes a boundary config payload. An empty payload is the
// zero Config.
func ParseConfig(payload string) (Config, error) {
	var cfg Config
	if payload == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return Config{}, fmt.Errorf("bridge: parse config: %w", err)
	}
	return cfg, nil
}

// gracePeriod resolves the effective stop grace period.
func (c Config) gracePeriod() time.Duration {
	if c.GracePeriodMS > 0 {
		return time.Duration(c.GracePeriodMS) * time.Millisecond
	}
	return DefaultGracePeriod
}
