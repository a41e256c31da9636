// Package controller implements the core control loop of obskeyd: device
// discovery, press classification, action dispatch and control-channel
// supervision.
//
// All shared mutable state (connection flag, toggle cooldown timestamp,
// monitored-device map) lives on the Controller behind one mutex. Writer
// rules: the reconnect supervisor is the only component that sets connected
// to true; any component may set it to false on an RPC failure. The watcher
// inserts into the device map; each classifier removes only its own entry.
package controller

import (
	"context"
	"sync"
	"time"

	"obskeyd/internal/config"
	"obskeyd/internal/diaglog"
	"obskeyd/internal/input"
	"obskeyd/internal/procmon"
)

// RecordClient is the control-channel surface the controller needs. It is
// satisfied by *obsws.Client.
type RecordClient interface {
	Connect() error
	ToggleRecord() (bool, error)
	GetRecordStatus() (bool, error)
}

// VersionReporter is optionally implemented by a RecordClient; when it is,
// the reconnect supervisor logs the server versions after each successful
// connect.
type VersionReporter interface {
	GetVersion() (string, string, error)
}

// monitoredDevice is one tracked input device and its running classifier.
type monitoredDevice struct {
	name string
	dev  input.Device
}

// Controller owns the daemon's runtime state and goroutines.
type Controller struct {
	cfg     config.Config
	client  RecordClient
	devices input.Subsystem
	procs   procmon.Manager
	diag    *diaglog.Logger

	mu         sync.Mutex
	connected  bool
	lastToggle time.Time
	monitored  map[string]*monitoredDevice
}

// New wires a Controller. diag may be nil.
func New(cfg config.Config, client RecordClient, devices input.Subsystem, procs procmon.Manager, diag *diaglog.Logger) *Controller {
	if diag == nil {
		diag = diaglog.NewNoOp()
	}
	return &Controller{
		cfg:       cfg,
		client:    client,
		devices:   devices,
		procs:     procs,
		diag:      diag,
		monitored: make(map[string]*monitoredDevice),
	}
}

// Run starts the reconnect supervisor and the device watcher and blocks
// until ctx is cancelled. Classifier goroutines are not waited for: they
// hold no resources beyond their device fd, which the process exit releases.
func (c *Controller) Run(ctx context.Context) {
	go c.runReconnect(ctx)
	c.runWatcher(ctx)
}

// Connected reports the current control-channel state.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// MarkDisconnected flips the channel state to disconnected. Wired to the
// client's OnDisconnected callback so a dead socket is retried without
// waiting for the next failed request.
func (c *Controller) MarkDisconnected() {
	c.setConnected(false)
}

// MonitoredCount returns how many devices currently have a classifier.
func (c *Controller) MonitoredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.monitored)
}

func (c *Controller) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Controller) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
