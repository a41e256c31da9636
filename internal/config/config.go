// Package config holds the immutable startup configuration for obskeyd.
// All values are fixed before any goroutine starts; nothing here is mutated
// at runtime.
package config

import (
	"fmt"
	"time"
)

// Config is the full runtime configuration. Host, Port, Password and
// TriggerCode come from CLI flags; the durations default to the values
// below and exist as fields so tests can compress time.
type Config struct {
	Host     string // OBS WebSocket host
	Port     int    // OBS WebSocket port
	Password string // OBS WebSocket password (may be empty)

	// TriggerCode is the single evdev key code the daemon listens for
	// (e.g. 28 for KEY_ENTER). Required; there is no sane default.
	TriggerCode uint16

	// LongPressThreshold separates a short press (toggle recording) from a
	// long press (toggle the OBS application).
	LongPressThreshold time.Duration

	// ReconnectDelay is the fixed interval between connect attempts while
	// the control channel is down.
	ReconnectDelay time.Duration

	// ScanInterval is how often the device watcher re-enumerates
	// /dev/input for newly plugged hardware.
	ScanInterval time.Duration

	// ToggleCooldown is the minimum spacing between two application-toggle
	// actions; anything closer is silently dropped.
	ToggleCooldown time.Duration

	// AppExecutable is the command used to launch OBS and the name matched
	// when scanning for a running instance.
	AppExecutable string
}

// Default returns a Config with all timing and target defaults set.
// TriggerCode stays zero; it has no default and must come from the caller.
func Default() Config {
	return Config{
		Host:               "localhost",
		Port:               4455,
		LongPressThreshold: time.Second,
		ReconnectDelay:     2 * time.Second,
		ScanInterval:       2 * time.Second,
		ToggleCooldown:     2 * time.Second,
		AppExecutable:      "obs",
	}
}

// Validate checks the configuration. A zero TriggerCode is the one fatal
// configuration error: code 0 is KEY_RESERVED and never emitted by hardware.
func (c *Config) Validate() error {
	if c.TriggerCode == 0 {
		return fmt.Errorf("trigger key code is required (pass --code, e.g. --code 28)")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.LongPressThreshold <= 0 {
		return fmt.Errorf("long-press threshold must be positive, got %v", c.LongPressThreshold)
	}
	if c.ScanInterval <= 0 || c.ReconnectDelay <= 0 {
		return fmt.Errorf("scan interval and reconnect delay must be positive")
	}
	if c.ToggleCooldown < 0 {
		return fmt.Errorf("toggle cooldown must not be negative, got %v", c.ToggleCooldown)
	}
	if c.AppExecutable == "" {
		return fmt.Errorf("application executable must not be empty")
	}
	return nil
}

// ParseTriggerCode converts the --code flag value into a key code. The
// evdev code space is 16-bit; anything outside 1..65535 is rejected here
// rather than silently wrapped by a narrowing conversion.
func ParseTriggerCode(v int) (uint16, error) {
	if v < 1 || v > 65535 {
		return 0, fmt.Errorf("trigger key code must be between 1 and 65535, got %d", v)
	}
	return uint16(v), nil
}

// WebSocketURL builds the OBS WebSocket endpoint URL.
func (c *Config) WebSocketURL() string {
	return fmt.Sprintf("ws://%s:%d", c.Host, c.Port)
}
