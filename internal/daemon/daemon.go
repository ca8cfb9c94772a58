package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("already running")

// Lock guards one process role, such as "app" or "listener".
type Lock struct {
	role string
	path string
	lock *flock.Flock

	mu   sync.Mutex
	held bool
}

// NewLock prepares a lock at path. Nothing is acquired until Acquire.
func NewLock(path, role string) *Lock {
	return &Lock{role: role, path: path, lock: flock.New(path)}
}

// Acquire takes the lock without blocking and records the holder's PID in
// the lock file.
func (l *Lock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return fmt.Errorf("%s lock already held by this process", l.role)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		holder := ""
		if pid := ReadPID(l.path); pid > 0 {
			holder = fmt.Sprintf(" (pid %d)", pid)
		}
		return fmt.Errorf("another switchscan %s instance is %w%s", l.role, ErrAlreadyRunning, holder)
	}
	l.held = true
	_ = os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	l.held = false
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release %s lock: %w", l.role, err)
	}
	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Held reports whether this process holds the lock.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Probe reports whether some process currently holds the lock at path.
func Probe(path string) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	probe := flock.New(path)
	ok, err := probe.TryLock()
	if err != nil {
		return false, err
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}

// ReadPID returns the PID recorded in a lock file, or zero.
func ReadPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
