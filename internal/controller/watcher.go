package controller

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"

	"obskeyd/internal/diaglog"
	"obskeyd/internal/input"
)

const devInputDir = "/dev/input"

// runWatcher re-enumerates input devices on a fixed interval and starts a
// classifier for every newly seen device that exposes the trigger key.
// Removal is reactive: a classifier deregisters itself when its event
// stream dies, and the next scan may pick the device up again.
func (c *Controller) runWatcher(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ScanInterval)
	defer ticker.Stop()

	hotplug := c.watchHotplug(ctx)

	c.scanOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.scanOnce()
		case <-hotplug:
			// A node just appeared; it may not be openable yet (udev is
			// still fixing permissions), in which case the ticker scan
			// retries it.
			c.scanOnce()
		}
	}
}

// watchHotplug returns a channel that pulses when a node is created under
// /dev/input. Returns nil (blocking forever in select) when fsnotify is
// unavailable; the ticker alone then drives discovery.
func (c *Controller) watchHotplug(ctx context.Context) <-chan struct{} {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[WATCH] fsnotify unavailable, polling only: %v", err)
		return nil
	}
	if err := watcher.Add(devInputDir); err != nil {
		log.Printf("[WATCH] cannot watch %s, polling only: %v", devInputDir, err)
		_ = watcher.Close()
		return nil
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create != 0 {
					select {
					case ch <- struct{}{}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[WATCH] fsnotify error: %v", err)
			}
		}
	}()
	return ch
}

// scanOnce enumerates devices and adopts eligible newcomers. Devices that
// fail to open are skipped this round and retried on the next scan; devices
// without the trigger key are closed immediately.
func (c *Controller) scanOnce() {
	paths, err := c.devices.ListPaths()
	if err != nil {
		log.Printf("[WATCH] device enumeration failed: %v", err)
		return
	}

	for _, path := range paths {
		c.mu.Lock()
		_, tracked := c.monitored[path]
		c.mu.Unlock()
		if tracked {
			continue
		}

		dev, err := c.devices.Open(path)
		if err != nil {
			continue
		}
		if !dev.SupportsKey(c.cfg.TriggerCode) {
			_ = dev.Close()
			continue
		}

		entry := &monitoredDevice{name: dev.Name(), dev: dev}
		c.mu.Lock()
		if _, dup := c.monitored[path]; dup {
			// A classifier re-registered between our check and now.
			c.mu.Unlock()
			_ = dev.Close()
			continue
		}
		c.monitored[path] = entry
		c.mu.Unlock()

		log.Printf("[WATCH] Monitoring: %s (%s)", entry.name, path)
		c.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentWatcher,
			Event:     diaglog.EventDeviceAdded,
			Device:    path,
			Payload:   map[string]interface{}{"name": entry.name},
		})

		go c.classify(dev)
	}
}

// deregister removes the map entry for dev, but only if it still belongs to
// this device instance: the watcher may already have re-adopted the path.
func (c *Controller) deregister(dev input.Device) {
	path := dev.Path()

	c.mu.Lock()
	if entry, ok := c.monitored[path]; ok && entry.dev == dev {
		delete(c.monitored, path)
	}
	c.mu.Unlock()

	_ = dev.Close()
	log.Printf("[WATCH] Lost device: %s", path)
	c.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentWatcher,
		Event:     diaglog.EventDeviceRemoved,
		Device:    path,
	})
}
