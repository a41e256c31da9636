// Package diaglog provides structured NDJSON diagnostic logging for obskeyd.
// Activated by OBSKEYD_DEBUG=true. When the env var is absent, all Log calls
// are no-ops and no file is created.
package diaglog

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Component labels, one per subsystem.

const (
	ComponentOBSClient  = "obs-ws-client"
	ComponentWatcher    = "device-watcher"
	ComponentClassifier = "classifier"
	ComponentDispatcher = "dispatcher"
	ComponentReconnect  = "reconnect-supervisor"
	ComponentMain       = "obskeyd"
)

// Event names.

const (
	EventWSSend           = "ws_send"
	EventWSRecv           = "ws_recv"
	EventWSConnect        = "ws_connect"
	EventWSDisconnect     = "ws_disconnect"
	EventReconnectAttempt = "reconnect_attempt"
	EventReconnectSuccess = "reconnect_success"
	EventDeviceAdded      = "device_added"
	EventDeviceRemoved    = "device_removed"
	EventShortPress       = "short_press"
	EventLongPress        = "long_press"
	EventToggleRecord     = "toggle_record"
	EventToggleApp        = "toggle_app"
	EventToggleDropped    = "toggle_dropped"
	EventCloseRefused     = "close_refused"
	EventAppLaunched      = "app_launched"
	EventAppTerminated    = "app_terminated"
	EventStartup          = "startup"
	EventShutdown         = "shutdown"
)

// Version is stamped by main at startup so callers can embed it in payloads.
var Version = "dev"

// LogEntry is one structured event record written as a single JSON line.
type LogEntry struct {
	Timestamp string      `json:"ts"`                // RFC3339Nano
	Component string      `json:"component"`         // see Component* constants
	Event     string      `json:"event"`             // see Event* constants
	Device    string      `json:"device,omitempty"`  // evdev node path
	Reason    string      `json:"reason,omitempty"`  // machine-readable reason code
	Payload   interface{} `json:"payload,omitempty"` // redacted before write
}

// maxLogSize caps the NDJSON file; an overflowing entry restarts it.
const maxLogSize = 10 * 1024 * 1024

// Logger writes LogEntry values to a size-capped NDJSON file. When debug
// mode is disabled every Log call is a no-op.
type Logger struct {
	file    *logFile
	mu      sync.Mutex
	enabled bool
}

// New opens (or creates) the NDJSON log file at path. If debug mode is
// disabled, path is ignored and a no-op logger is returned.
func New(path string) (*Logger, error) {
	if !IsDebugEnabled() {
		return &Logger{enabled: false}, nil
	}
	file, err := openLogFile(path, maxLogSize)
	if err != nil {
		return nil, err
	}
	return &Logger{file: file, enabled: true}, nil
}

// Log serialises entry to JSON, appends a newline, and writes to the rolling
// file. Credential-bearing payload fields are redacted before serialisation.
func (l *Logger) Log(entry LogEntry) {
	if l == nil || !l.enabled {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.Payload != nil {
		entry.Payload = Redact(entry.Payload)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.file.writeEntry(data)
}

// Close flushes and closes the underlying file. Safe on nil/disabled logger.
func (l *Logger) Close() error {
	if l == nil || !l.enabled || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.close()
}

// IsDebugEnabled reports whether OBSKEYD_DEBUG is set to "true".
func IsDebugEnabled() bool {
	return os.Getenv("OBSKEYD_DEBUG") == "true"
}

// DefaultPath returns the log file location, honouring OBSKEYD_LOG_PATH.
func DefaultPath() string {
	if p := os.Getenv("OBSKEYD_LOG_PATH"); p != "" {
		return p
	}
	return "/tmp/obskeyd-debug.log"
}

// NewNoOp returns a logger where every Log call is a no-op. Use as a safe
// fallback when New fails (e.g., disk full, permissions error).
func NewNoOp() *Logger {
	return &Logger{enabled: false}
}
