package controller

import (
	"context"
	"log"
	"time"

	"obskeyd/internal/diaglog"
	"obskeyd/internal/validation"
)

// runReconnect is the only goroutine that marks the connection up. It
// attempts a connect immediately whenever the state is down, then retries
// on a fixed delay until the context is cancelled.
func (c *Controller) runReconnect(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ReconnectDelay)
	defer ticker.Stop()

	for {
		if !c.isConnected() {
			c.attemptConnect()
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) attemptConnect() {
	c.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentReconnect,
		Event:     diaglog.EventReconnectAttempt,
	})
	if err := c.client.Connect(); err != nil {
		c.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentReconnect,
			Event:     diaglog.EventWSDisconnect,
			Reason:    err.Error(),
		})
		return
	}

	c.setConnected(true)
	log.Println("Connected to OBS WebSocket.")
	c.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentReconnect,
		Event:     diaglog.EventReconnectSuccess,
	})

	if vr, ok := c.client.(VersionReporter); ok {
		if obsVer, wsVer, err := vr.GetVersion(); err == nil {
			log.Printf("OBS %s (WebSocket %s)", obsVer, wsVer)
			c.checkCompat(obsVer, wsVer)
		}
	}
}

// checkCompat warns once per connect when the server looks too old to
// honor our requests. Advisory only; applying the fix is up to the user.
func (c *Controller) checkCompat(obsVer, wsVer string) {
	result := validation.CheckOBSCompat(obsVer, wsVer)
	if result.OK {
		return
	}
	log.Printf("[WARNING] %s", result.Message)
	for _, fix := range result.Fixes {
		log.Printf("  - %s", fix)
	}
}
