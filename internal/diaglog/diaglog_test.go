package diaglog

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestLogWritesNDJSON(t *testing.T) {
	t.Setenv("OBSKEYD_DEBUG", "true")

	tmp := t.TempDir() + "/test.ndjson"
	l, err := New(tmp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	entries := []LogEntry{
		{Component: ComponentOBSClient, Event: EventWSConnect},
		{Component: ComponentClassifier, Event: EventShortPress, Device: "/dev/input/event3", Reason: "duration_below_threshold"},
		{Component: ComponentDispatcher, Event: EventToggleApp},
	}
	for _, e := range entries {
		l.Log(e)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(tmp)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []map[string]interface{}
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line: %v -> %s", err, scanner.Text())
		}
		lines = append(lines, m)
	}
	if len(lines) != len(entries) {
		t.Fatalf("want %d lines, got %d", len(entries), len(lines))
	}
	if lines[0]["component"] != ComponentOBSClient {
		t.Errorf("component mismatch: %v", lines[0]["component"])
	}
	if lines[1]["device"] != "/dev/input/event3" {
		t.Errorf("device mismatch: %v", lines[1]["device"])
	}
	if lines[0]["ts"] == nil {
		t.Error("ts field missing")
	}
}

func TestCappedFileRestarts(t *testing.T) {
	tmp := t.TempDir() + "/capped.ndjson"
	const cap = 1024
	lf, err := openLogFile(tmp, cap)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	defer lf.close()

	line := []byte(strings.Repeat("x", 512) + "\n")
	for i := 0; i < 3; i++ {
		if err := lf.writeEntry(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) > cap {
		t.Errorf("file size %d exceeds cap %d", len(data), cap)
	}
	// The restart must land between entries: only full lines survive.
	if len(data) == 0 || data[len(data)-1] != '\n' {
		t.Error("file does not end on a line boundary")
	}
	for _, ln := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if ln != strings.Repeat("x", 512) {
			t.Errorf("torn line after restart: %d bytes", len(ln))
		}
	}
}

func TestRedactSensitiveFields(t *testing.T) {
	input := map[string]interface{}{
		"authentication": "secret-token",
		"challenge":      "xyz",
		"salt":           "abc",
		"password":       "hunter2",
		"request_type":   "ToggleRecord",
		"nested": map[string]interface{}{
			"password": "nested-pass",
			"ok":       "value",
		},
	}

	out := Redact(input).(map[string]interface{})
	for _, k := range []string{"authentication", "challenge", "salt", "password"} {
		if out[k] != "[REDACTED]" {
			t.Errorf("key %q: want [REDACTED], got %v", k, out[k])
		}
	}
	if out["request_type"] != "ToggleRecord" {
		t.Errorf("request_type should be preserved")
	}
	nested := out["nested"].(map[string]interface{})
	if nested["password"] != "[REDACTED]" {
		t.Error("nested password not redacted")
	}
	if nested["ok"] != "value" {
		t.Error("nested ok field should be preserved")
	}
}

func TestNoOpWhenDisabled(t *testing.T) {
	t.Setenv("OBSKEYD_DEBUG", "")

	tmp := t.TempDir() + "/noop.ndjson"
	l, err := New(tmp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(LogEntry{Component: ComponentOBSClient, Event: EventWSConnect})
	_ = l.Close()

	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("log file should not exist when debug disabled")
	}
}
