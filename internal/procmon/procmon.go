// Package procmon finds, terminates and launches the controlled OBS
// process. It is the only part of the daemon that touches the OS process
// table.
package procmon

import (
	"errors"
	"os"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// Manager is the process inspection/launch surface the dispatcher uses.
type Manager interface {
	// FindRunning returns the PID of a live target process, or false when
	// none is running.
	FindRunning() (int32, bool)

	// Terminate asks the process to exit gracefully (SIGINT). A process
	// that is already gone is not an error.
	Terminate(pid int32) error

	// Launch starts a fresh detached instance of the target.
	Launch() error
}

// OSManager implements Manager against the real process table.
type OSManager struct {
	executable string
	selfPID    int32
	selfName   string
}

// NewManager creates a Manager for the given target executable name.
func NewManager(executable string) *OSManager {
	return &OSManager{
		executable: executable,
		selfPID:    int32(os.Getpid()),
		selfName:   "obskeyd",
	}
}

// FindRunning scans the process table for a live target process. Zombie and
// dead entries are skipped: a zombie OBS must read as "not running" so a
// toggle relaunches it instead of signalling a corpse.
func (m *OSManager) FindRunning() (int32, bool) {
	procs, err := process.Processes()
	if err != nil {
		return 0, false
	}

	for _, p := range procs {
		if p.Pid == m.selfPID {
			continue
		}
		name, err := p.Name()
		if err != nil || name == "" {
			continue
		}
		if !m.matchesTarget(name) {
			continue
		}
		statuses, err := p.Status()
		if err == nil && isDefunct(statuses) {
			continue
		}
		return p.Pid, true
	}
	return 0, false
}

// matchesTarget reports whether a process name belongs to the controlled
// application. The daemon's own process name also contains "obs", so it is
// excluded explicitly.
func (m *OSManager) matchesTarget(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, m.selfName) {
		return false
	}
	return strings.Contains(lower, strings.ToLower(m.executable))
}

func isDefunct(statuses []string) bool {
	for _, s := range statuses {
		if s == process.Zombie || s == "dead" {
			return true
		}
	}
	return false
}

// Terminate sends SIGINT so OBS runs its normal shutdown path (saving the
// profile, closing outputs). A vanished process is treated as already
// closed.
func (m *OSManager) Terminate(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		// Gone between check and signal.
		return nil
	}
	if err := p.SendSignal(syscall.SIGINT); err != nil {
		if errors.Is(err, syscall.ESRCH) || errors.Is(err, process.ErrorProcessNotRunning) {
			return nil
		}
		return err
	}
	return nil
}
