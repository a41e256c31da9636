package integration

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"obskeyd/internal/config"
	"obskeyd/internal/controller"
	"obskeyd/internal/input"
	"obskeyd/internal/obsws"
	"obskeyd/testutil"
)

// End-to-end press flows: real obsws client against the mock OBS server,
// with the input and process layers faked.

func testConfig() config.Config {
	cfg := config.Default()
	cfg.TriggerCode = 28
	cfg.LongPressThreshold = 30 * time.Millisecond
	cfg.ReconnectDelay = 20 * time.Millisecond
	cfg.ScanInterval = 20 * time.Millisecond
	cfg.ToggleCooldown = 50 * time.Millisecond
	return cfg
}

type scriptedDevice struct {
	path   string
	events chan input.Event
	mu     sync.Mutex
	closed bool
}

func newScriptedDevice(path string) *scriptedDevice {
	return &scriptedDevice{path: path, events: make(chan input.Event, 16)}
}

func (d *scriptedDevice) Path() string                 { return d.path }
func (d *scriptedDevice) Name() string                 { return "scripted-keyboard" }
func (d *scriptedDevice) SupportsKey(code uint16) bool { return true }

func (d *scriptedDevice) ReadEvent() (input.Event, error) {
	ev, ok := <-d.events
	if !ok {
		return input.Event{}, io.EOF
	}
	return ev, nil
}

func (d *scriptedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	return nil
}

func (d *scriptedDevice) press(code uint16, hold time.Duration) {
	d.events <- input.Event{Type: input.EvKey, Code: code, Value: input.ValueKeyDown}
	if hold > 0 {
		time.Sleep(hold)
	}
	d.events <- input.Event{Type: input.EvKey, Code: code, Value: input.ValueKeyUp}
}

type scriptedSubsystem struct {
	mu   sync.Mutex
	dev  *scriptedDevice
	held bool
}

func (s *scriptedSubsystem) ListPaths() ([]string, error) {
	return []string{s.dev.path}, nil
}

func (s *scriptedSubsystem) Open(path string) (input.Device, error) {
	if path != s.dev.path {
		return nil, errors.New("no such device")
	}
	return s.dev, nil
}

func (s *scriptedSubsystem) KeyHeld(path string, code uint16) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held, nil
}

func (s *scriptedSubsystem) setHeld(v bool) {
	s.mu.Lock()
	s.held = v
	s.mu.Unlock()
}

type recordingProcs struct {
	mu         sync.Mutex
	runningPID int32
	launches   int
	terminates int
}

func (p *recordingProcs) FindRunning() (int32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningPID, p.runningPID != 0
}

func (p *recordingProcs) Terminate(pid int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminates++
	p.runningPID = 0
	return nil
}

func (p *recordingProcs) Launch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.launches++
	p.runningPID = 4242
	return nil
}

type harness struct {
	server *testutil.MockOBSServer
	client *obsws.Client
	ctrl   *controller.Controller
	dev    *scriptedDevice
	subsys *scriptedSubsystem
	procs  *recordingProcs
	cancel context.CancelFunc
}

func startHarness(t *testing.T) *harness {
	t.Helper()

	server := testutil.NewMockOBS()
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start mock OBS: %v", err)
	}

	dev := newScriptedDevice("/dev/input/event3")
	subsys := &scriptedSubsystem{dev: dev}
	procs := &recordingProcs{runningPID: 1234}

	client := obsws.NewClient(server.URL(), "")
	ctrl := controller.New(testConfig(), client, subsys, procs, nil)
	client.OnDisconnected(ctrl.MarkDisconnected)

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)

	h := &harness{
		server: server,
		client: client,
		ctrl:   ctrl,
		dev:    dev,
		subsys: subsys,
		procs:  procs,
		cancel: cancel,
	}
	t.Cleanup(func() {
		cancel()
		client.Close()
		_ = server.Stop()
	})

	waitFor(t, "client connected", h.ctrl.Connected)
	waitFor(t, "device monitored", func() bool { return ctrl.MonitoredCount() == 1 })
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestShortPressStartsAndStopsRecording(t *testing.T) {
	h := startHarness(t)

	h.dev.press(28, 0)
	waitFor(t, "recording started", h.server.RecordActive)

	h.dev.press(28, 0)
	waitFor(t, "recording stopped", func() bool { return !h.server.RecordActive() })
}

func TestCloseRefusedWhileServerRecording(t *testing.T) {
	logs := testutil.NewLogCapture()
	logs.Start()
	defer logs.Stop()

	h := startHarness(t)
	h.server.SetRecordActive(true)
	h.subsys.setHeld(true)

	h.dev.events <- input.Event{Type: input.EvKey, Code: 28, Value: input.ValueKeyDown}

	waitFor(t, "refusal logged", func() bool {
		return logs.Contains("Cannot close OBS: Recording is active.")
	})

	h.procs.mu.Lock()
	terminates := h.procs.terminates
	running := h.procs.runningPID
	h.procs.mu.Unlock()
	if terminates != 0 {
		t.Fatalf("expected no termination while recording, got %d", terminates)
	}
	if running == 0 {
		t.Fatal("expected the app to still be running")
	}
}

func TestLongPressClosesIdleApp(t *testing.T) {
	h := startHarness(t)
	h.subsys.setHeld(true)

	h.dev.events <- input.Event{Type: input.EvKey, Code: 28, Value: input.ValueKeyDown}

	waitFor(t, "app terminated", func() bool {
		h.procs.mu.Lock()
		defer h.procs.mu.Unlock()
		return h.procs.terminates == 1
	})
	if h.ctrl.Connected() {
		t.Fatal("expected control channel marked down after closing the app")
	}

	// The supervisor reconnects on its own: the mock server is still up,
	// standing in for a relaunched OBS.
	waitFor(t, "client reconnected", h.ctrl.Connected)
}

func TestReconnectAfterServerDrop(t *testing.T) {
	h := startHarness(t)

	h.server.CloseClient()
	waitFor(t, "disconnect noticed", func() bool { return !h.ctrl.Connected() })
	waitFor(t, "client reconnected", h.ctrl.Connected)

	// Presses keep working on the new connection.
	h.dev.press(28, 0)
	waitFor(t, "recording started", h.server.RecordActive)
}

func TestShortPressWhileServerDownIsDropped(t *testing.T) {
	h := startHarness(t)

	h.server.SetFailureMode(testutil.ModeDisconnect)
	h.server.CloseClient()
	waitFor(t, "disconnect noticed", func() bool { return !h.ctrl.Connected() })

	h.dev.press(28, 0)
	time.Sleep(100 * time.Millisecond)
	if h.server.RecordActive() {
		t.Fatal("press while disconnected must not reach the server")
	}
}

func startMockServer(t *testing.T) *testutil.MockOBSServer {
	t.Helper()
	server := testutil.NewMockOBS()
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start mock OBS: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func TestAuthenticatedHandshake(t *testing.T) {
	server := testutil.NewMockOBS()
	server.SetPassword("hunter2")
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start mock OBS: %v", err)
	}
	defer server.Stop()

	client := obsws.NewClient(server.URL(), "hunter2")
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect with correct password failed: %v", err)
	}
	defer client.Close()

	waitFor(t, "server identified the client", server.Connected)
	if _, err := client.ToggleRecord(); err != nil {
		t.Fatalf("authenticated request failed: %v", err)
	}

	bad := obsws.NewClient(server.URL(), "wrong")
	defer bad.Close()
	if err := bad.Connect(); err == nil {
		t.Fatal("Connect with wrong password must fail")
	}
}

func TestPushedRecordStateReachesCallback(t *testing.T) {
	server := startMockServer(t)

	client := obsws.NewClient(server.URL(), "")
	defer client.Close()

	states := make(chan bool, 4)
	client.OnRecordStateChanged(func(recording bool) {
		states <- recording
	})

	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	waitFor(t, "server identified the client", server.Connected)

	if err := server.PushRecordStateChanged(true); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	select {
	case got := <-states:
		if !got {
			t.Error("callback got recording=false, want true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RecordStateChanged event never reached the callback")
	}
	if !server.RecordActive() {
		t.Error("pushed state should be reflected by the server")
	}
}

func TestFailureModesSurfaceErrors(t *testing.T) {
	server := startMockServer(t)

	client := obsws.NewClient(server.URL(), "")
	defer client.Close()
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	modes := []struct {
		mode    string
		wantSub string
	}{
		{testutil.ModeCode203, "code: 203"},
		{testutil.ModeCode204, "code 204"},
	}
	for _, tt := range modes {
		server.SetFailureMode(tt.mode)
		_, err := client.ToggleRecord()
		if err == nil {
			t.Fatalf("mode %s: ToggleRecord should fail", tt.mode)
		}
		if !strings.Contains(err.Error(), tt.wantSub) {
			t.Errorf("mode %s: error should contain %q, got: %v", tt.mode, tt.wantSub, err)
		}
	}

	server.SetFailureMode(testutil.ModeNormal)
	if _, err := client.ToggleRecord(); err != nil {
		t.Errorf("recovered server should accept requests again: %v", err)
	}
}
