// Package pidfile guards against running two daemon instances at once.
// Two instances would double-toggle recording on every press, so a live
// PID file is a hard startup error rather than a warning.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// PIDFile is a claimed lock file holding this process's PID.
type PIDFile struct {
	path string
	pid  int
}

// New claims the PID file at path. A file left by a crashed instance is
// detected by probing its PID and replaced; a file owned by a live process
// is an error.
func New(path string) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	if existing, ok := readPID(path); ok {
		alive, err := process.PidExists(int32(existing))
		if err == nil && alive {
			return nil, fmt.Errorf("another instance is already running (PID %d)", existing)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale PID file: %w", err)
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}
	return &PIDFile{path: path, pid: pid}, nil
}

// Remove releases the claim. The file is deleted only while it still holds
// our own PID; a file already taken over by a newer instance is left alone.
func (p *PIDFile) Remove() error {
	if p == nil {
		return nil
	}
	if pid, ok := readPID(p.path); ok && pid == p.pid {
		return os.Remove(p.path)
	}
	return nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// GetPIDFilePath returns the PID file location for the given app name,
// under XDG_CACHE_HOME when set and ~/.cache otherwise.
func GetPIDFilePath(appName string) string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		cacheDir = filepath.Join(os.Getenv("HOME"), ".cache")
	}
	return filepath.Join(cacheDir, "obskeyd", appName+".pid")
}
