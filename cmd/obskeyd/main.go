package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"obskeyd/internal/config"
	"obskeyd/internal/controller"
	"obskeyd/internal/diaglog"
	"obskeyd/internal/input"
	"obskeyd/internal/obsws"
	"obskeyd/internal/pidfile"
	"obskeyd/internal/procmon"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	cfg, err := parseFlags()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	log.SetPrefix("[obskeyd] ")

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC in obskeyd: %v\n", r)
			os.Exit(1)
		}
	}()

	log.Println("===========================================")
	log.Println("Starting obskeyd v" + Version + "...")
	log.Printf("PID: %d", os.Getpid())
	log.Printf("Timestamp: %s", time.Now().Format(time.RFC3339))
	log.Println("===========================================")

	// Refuse to run twice against the same key and OBS instance.
	pidFilePath := pidfile.GetPIDFilePath("obskeyd")
	pf, err := pidfile.New(pidFilePath)
	if err != nil {
		log.Printf("[ERROR] Failed to create PID file: %v", err)
		log.Println("Another instance of obskeyd may already be running.")
		log.Printf("If you're sure no other instance is running, remove: %s", pidFilePath)
		os.Exit(1)
	}
	defer func() {
		if err := pf.Remove(); err != nil {
			log.Printf("Warning: failed to remove PID file: %v", err)
		}
	}()
	log.Printf("PID file created: %s", pidFilePath)

	diaglog.Version = Version
	diag, err := diaglog.New(diaglog.DefaultPath())
	if err != nil {
		log.Printf("Warning: diagnostic log unavailable: %v", err)
		diag = diaglog.NewNoOp()
	}
	defer diag.Close()
	diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentMain,
		Event:     diaglog.EventStartup,
		Payload:   map[string]interface{}{"version": Version, "pid": os.Getpid()},
	})
	if diaglog.IsDebugEnabled() {
		log.Printf("[STARTUP] Diagnostic logging enabled: %s", diaglog.DefaultPath())
	}

	log.Printf("[STARTUP] OBS WebSocket target: %s", cfg.WebSocketURL())
	log.Printf("[STARTUP] Trigger key code: %d (long press >= %s toggles the app)",
		cfg.TriggerCode, cfg.LongPressThreshold)

	client := obsws.NewClient(cfg.WebSocketURL(), cfg.Password)
	client.SetLogger(diag)
	defer client.Close()

	ctrl := controller.New(cfg, client, input.NewEvdev(), procmon.NewManager(cfg.AppExecutable), diag)

	client.OnRecordStateChanged(func(recording bool) {
		if recording {
			log.Println("[EVENT] OBS recording state changed: STARTED")
		} else {
			log.Println("[EVENT] OBS recording state changed: STOPPED")
		}
	})
	client.OnDisconnected(func() {
		log.Println("[EVENT] OBS disconnected - will attempt reconnection")
		ctrl.MarkDisconnected()
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Println("[STARTUP] Signal handlers registered (SIGINT, SIGTERM)")

	log.Printf("[STARTUP] Scanning input devices every %s...", cfg.ScanInterval)
	log.Println("===========================================")
	log.Println("[RUNNING] obskeyd is running and monitoring")

	ctrl.Run(ctx)

	diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentMain,
		Event:     diaglog.EventShutdown,
	})
	log.Println("===========================================")
	log.Printf("[SHUTDOWN] Received shutdown signal at %s", time.Now().Format(time.RFC3339))
	log.Println("[SHUTDOWN] Shutting down gracefully")
	log.Println("===========================================")
}

func parseFlags() (config.Config, error) {
	cfg := config.Default()
	flag.StringVar(&cfg.Host, "host", cfg.Host, "OBS WebSocket host")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "OBS WebSocket port")
	flag.StringVar(&cfg.Password, "password", cfg.Password, "OBS WebSocket password")
	code := flag.Int("code", 0, "evdev key code of the trigger key (required)")
	flag.Parse()

	// A missing flag falls through to Validate's "required" message.
	if *code != 0 {
		triggerCode, err := config.ParseTriggerCode(*code)
		if err != nil {
			return cfg, err
		}
		cfg.TriggerCode = triggerCode
	}
	return cfg, nil
}
