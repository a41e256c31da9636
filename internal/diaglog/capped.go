package diaglog

import (
	"os"
	"sync"
)

// logFile is the NDJSON sink with a hard size cap. An entry that would push
// the file past the cap restarts the file instead; the trace then holds only
// the most recent entries. Entries are written whole and the restart happens
// between entries, so a reader never sees a torn JSON line.
type logFile struct {
	mu   sync.Mutex
	f    *os.File
	path string
	cap  int64
	used int64
}

func openLogFile(path string, cap int64) (*logFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &logFile{f: f, path: path, cap: cap, used: info.Size()}, nil
}

// writeEntry appends one complete NDJSON line, restarting the file first when
// the line would not fit under the cap. Each entry is synced to disk; the log
// exists to survive the crash it is diagnosing.
func (lf *logFile) writeEntry(line []byte) error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.used+int64(len(line)) > lf.cap {
		if err := lf.restart(); err != nil {
			return err
		}
	}

	n, err := lf.f.Write(line)
	lf.used += int64(n)
	if err != nil {
		return err
	}
	return lf.f.Sync()
}

// restart replaces the file with an empty one. Reopening with O_TRUNC keeps
// the same inode semantics a tail -f reader expects from an in-place wipe.
func (lf *logFile) restart() error {
	_ = lf.f.Close()
	f, err := os.OpenFile(lf.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	lf.f = f
	lf.used = 0
	return nil
}

func (lf *logFile) close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	_ = lf.f.Sync()
	return lf.f.Close()
}
