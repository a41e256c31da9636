package controller

import (
	"log"
	"time"

	"obskeyd/internal/diaglog"
)

// toggleRecording flips the OBS record output. A failed request marks the
// connection down so the supervisor takes over; the press is dropped rather
// than queued.
func (c *Controller) toggleRecording() {
	if !c.isConnected() {
		c.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentDispatcher,
			Event:     diaglog.EventToggleDropped,
			Reason:    "not connected",
		})
		return
	}

	active, err := c.client.ToggleRecord()
	if err != nil {
		log.Printf("[ERROR] Toggle recording failed: %v", err)
		c.setConnected(false)
		c.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentDispatcher,
			Event:     diaglog.EventToggleDropped,
			Reason:    err.Error(),
		})
		return
	}
	c.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentDispatcher,
		Event:     diaglog.EventToggleRecord,
		Payload:   map[string]interface{}{"outputActive": active},
	})
}

// toggleApp launches OBS when it is not running and terminates it when it
// is, unless a recording is active. Rapid repeats inside the cooldown
// window are dropped.
func (c *Controller) toggleApp() {
	c.mu.Lock()
	if time.Since(c.lastToggle) < c.cfg.ToggleCooldown {
		c.mu.Unlock()
		c.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentDispatcher,
			Event:     diaglog.EventToggleDropped,
			Reason:    "cooldown",
		})
		return
	}
	c.lastToggle = time.Now()
	c.mu.Unlock()

	pid, running := c.procs.FindRunning()
	if running {
		if c.recordingActive() {
			log.Println("Cannot close OBS: Recording is active.")
			c.diag.Log(diaglog.LogEntry{
				Component: diaglog.ComponentDispatcher,
				Event:     diaglog.EventCloseRefused,
				Reason:    "recording active",
			})
			return
		}
		log.Printf("Closing OBS (pid %d).", pid)
		if err := c.procs.Terminate(pid); err != nil {
			log.Printf("[ERROR] Failed to close OBS: %v", err)
			return
		}
		c.setConnected(false)
		c.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentDispatcher,
			Event:     diaglog.EventAppTerminated,
			Payload:   map[string]interface{}{"pid": pid},
		})
		return
	}

	log.Println("Launching OBS.")
	if err := c.procs.Launch(); err != nil {
		log.Printf("[ERROR] Failed to launch OBS: %v", err)
		return
	}
	c.setConnected(false)
	c.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentDispatcher,
		Event:     diaglog.EventAppLaunched,
	})
}

// recordingActive asks OBS for the live record status. When the connection
// is down (or the query fails) it reports false, which errs on the side of
// honoring the user's close request.
func (c *Controller) recordingActive() bool {
	if !c.isConnected() {
		return false
	}
	active, err := c.client.GetRecordStatus()
	if err != nil {
		c.setConnected(false)
		return false
	}
	return active
}
