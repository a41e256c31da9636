package controller

import (
	"log"
	"sync/atomic"
	"time"

	"obskeyd/internal/diaglog"
	"obskeyd/internal/input"
)

// pressWindow tracks one in-flight key press. A new key-down allocates a
// fresh window, superseding any previous one; a stale long-press timer then
// holds a window nobody else reads, and its only possible effect (an app
// toggle) is still gated by the live-key re-check and the cooldown.
type pressWindow struct {
	start time.Time
	fired atomic.Bool // long-press action already dispatched
}

// classify consumes one device's event stream until it errors (device
// unplugged, permission revoked) and deregisters the device on exit. Events
// other than the trigger key are ignored.
func (c *Controller) classify(dev input.Device) {
	defer c.deregister(dev)

	var press *pressWindow
	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			return
		}
		if ev.Type != input.EvKey || ev.Code != c.cfg.TriggerCode {
			continue
		}

		switch ev.Value {
		case input.ValueKeyDown:
			press = &pressWindow{start: time.Now()}
			go c.checkLongPress(dev.Path(), press)

		case input.ValueKeyUp:
			if press == nil || press.fired.Load() {
				// Long action already happened, or we never saw the down.
				continue
			}
			duration := time.Since(press.start)
			if duration < c.cfg.LongPressThreshold && c.isConnected() {
				log.Printf("[%s] Toggle Recording.", dev.Name())
				c.diag.Log(diaglog.LogEntry{
					Component: diaglog.ComponentClassifier,
					Event:     diaglog.EventShortPress,
					Device:    dev.Path(),
					Payload:   map[string]interface{}{"duration_ms": duration.Milliseconds()},
				})
				c.toggleRecording()
			}
		}
	}
}

// checkLongPress fires at exactly the threshold mark. It decides by
// re-sampling the live key state rather than by the absence of a key-up
// event, which makes the race against the classifier's own key-up handling
// safe: whichever ran first, a released key can never trigger the long
// action. The timer is never cancelled; if the key was released it is a
// no-op.
func (c *Controller) checkLongPress(path string, press *pressWindow) {
	time.Sleep(c.cfg.LongPressThreshold)

	held, err := c.devices.KeyHeld(path, c.cfg.TriggerCode)
	if err != nil || !held {
		return
	}

	press.fired.Store(true)
	log.Println("Hold detected: Toggling OBS Application.")
	c.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentClassifier,
		Event:     diaglog.EventLongPress,
		Device:    path,
	})
	c.toggleApp()
}
