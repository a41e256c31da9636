package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Default()
	cfg.TriggerCode = 28
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string // substring, empty means valid
	}{
		{
			name:   "defaults with trigger code are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing trigger code",
			mutate:  func(c *Config) { c.TriggerCode = 0 },
			wantErr: "trigger key code is required",
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: "port must be between",
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "port must be between",
		},
		{
			name:    "empty host",
			mutate:  func(c *Config) { c.Host = "" },
			wantErr: "host must not be empty",
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.LongPressThreshold = 0 },
			wantErr: "threshold must be positive",
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.ToggleCooldown = -time.Second },
			wantErr: "cooldown must not be negative",
		},
		{
			name:    "empty executable",
			mutate:  func(c *Config) { c.AppExecutable = "" },
			wantErr: "executable must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWebSocketURL(t *testing.T) {
	cfg := validConfig()
	if got := cfg.WebSocketURL(); got != "ws://localhost:4455" {
		t.Errorf("WebSocketURL() = %q, want ws://localhost:4455", got)
	}

	cfg.Host = "10.0.0.5"
	cfg.Port = 4444
	if got := cfg.WebSocketURL(); got != "ws://10.0.0.5:4444" {
		t.Errorf("WebSocketURL() = %q, want ws://10.0.0.5:4444", got)
	}
}

func TestDefaultTimings(t *testing.T) {
	cfg := Default()
	if cfg.LongPressThreshold != time.Second {
		t.Errorf("LongPressThreshold = %v, want 1s", cfg.LongPressThreshold)
	}
	if cfg.ReconnectDelay != 2*time.Second {
		t.Errorf("ReconnectDelay = %v, want 2s", cfg.ReconnectDelay)
	}
	if cfg.ToggleCooldown != 2*time.Second {
		t.Errorf("ToggleCooldown = %v, want 2s", cfg.ToggleCooldown)
	}
	if cfg.AppExecutable != "obs" {
		t.Errorf("AppExecutable = %q, want obs", cfg.AppExecutable)
	}
}

func TestParseTriggerCode(t *testing.T) {
	tests := []struct {
		name    string
		in      int
		want    uint16
		wantErr bool
	}{
		{"enter key", 28, 28, false},
		{"top of range", 65535, 65535, false},
		{"zero", 0, 0, true},
		{"negative", -1, 0, true},
		{"past 16-bit range", 65564, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTriggerCode(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTriggerCode(%d) = %d, want error", tt.in, got)
				}
				if !strings.Contains(err.Error(), "between 1 and 65535") {
					t.Errorf("error should name the valid range, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTriggerCode(%d): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTriggerCode(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
