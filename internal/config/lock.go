package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// lockDoc is the JSON body written into the root LOCK file.
type lockDoc struct {
	PID        int       `json:"pid"`
	InstanceID string    `json:"instanceId"`
	StartedAt  time.Time `json:"startedAt"`
}

// InstanceLock enforces the exactly-one-instance contract (spec §4.8) via
// an exclusive-create LOCK file holding pid and start time. A stale lock
// (pid no longer alive) is adopted rather than rejected.
type InstanceLock struct {
	path string
	id   string
}

// InstanceID is a fresh UUID minted for this process's lock, distinct from
// the PID (which the OS can reuse across restarts); GET /version reports it
// so a client can tell two runs against the same data dir apart even if
// apiStartTime collides.
func (l *InstanceLock) InstanceID() string { return l.id }

// Acquire creates <root>/LOCK, adopting a stale lock left by a dead
// process.
func Acquire(root string) (*InstanceLock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(root, "LOCK")

	id := uuid.New().String()
	if err := tryCreateLock(path, id); err == nil {
		return &InstanceLock{path: path, id: id}, nil
	}

	// Lock exists; check whether its owner is still alive.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read existing lock: %w", err)
	}
	var existing lockDoc
	if err := json.Unmarshal(data, &existing); err != nil {
		// Unparseable lock file: treat as stale and adopt it.
		if rerr := os.Remove(path); rerr != nil {
			return nil, fmt.Errorf("remove corrupt lock: %w", rerr)
		}
		return Acquire(root)
	}

	if processAlive(existing.PID) {
		return nil, fmt.Errorf("another instance is running (pid %d, started %s)", existing.PID, existing.StartedAt)
	}

	// Stale: adopt it.
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("remove stale lock: %w", err)
	}
	id = uuid.New().String()
	if err := tryCreateLock(path, id); err != nil {
		return nil, fmt.Errorf("acquire lock after adopting stale one: %w", err)
	}
	return &InstanceLock{path: path, id: id}, nil
}

func tryCreateLock(path, instanceID string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	doc := lockDoc{PID: os.Getpid(), InstanceID: instanceID, StartedAt: time.Now()}
	data, _ := json.Marshal(doc)
	_, err = f.Write(data)
	return err
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On POSIX, FindProcess always succeeds; signal 0 probes liveness
	// without actually sending a signal.
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// Release removes the lock file. Called on graceful shutdown only.
func (l *InstanceLock) Release() error {
	return os.Remove(l.path)
}
