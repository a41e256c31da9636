package procmon

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// runtimeEnvVars are stripped from the spawned application's environment so
// the daemon's own Go runtime tuning never leaks into OBS.
var runtimeEnvVars = map[string]bool{
	"GODEBUG":     true,
	"GOGC":        true,
	"GOMAXPROCS":  true,
	"GOMEMLIMIT":  true,
	"GOTRACEBACK": true,
	"GOENV":       true,
}

// Launch starts the target executable in its own session with stdio
// discarded, so it survives the daemon and never writes into our terminal.
func (m *OSManager) Launch() error {
	cmd := exec.Command(m.executable)
	cmd.Env = sanitizeEnv(os.Environ())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %q: %w", m.executable, err)
	}

	// Reap the child when it exits; we never inspect its status.
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// sanitizeEnv returns env without the daemon's runtime-specific variables.
func sanitizeEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		name, _, ok := strings.Cut(kv, "=")
		if ok && runtimeEnvVars[name] {
			continue
		}
		out = append(out, kv)
	}
	return out
}
