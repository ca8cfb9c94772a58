package daemon_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"switchscan/internal/daemon"
)

func TestLockSingleInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "app.lock")
	first := daemon.NewLock(path, "app")
	if err := first.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	t.Cleanup(func() { _ = first.Release() })

	if got := daemon.ReadPID(path); got != os.Getpid() {
		t.Fatalf("pid = %d, want %d", got, os.Getpid())
	}
	held, err := daemon.Probe(path)
	if err != nil || !held {
		t.Fatalf("probe = %v, %v", held, err)
	}

	second := daemon.NewLock(path, "app")
	err = second.Acquire()
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("second acquire = %v, want ErrAlreadyRunning", err)
	}
	if err := first.Acquire(); err == nil {
		t.Fatal("re-acquire by the holder should fail")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second release should be a no-op: %v", err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if !second.Held() {
		t.Fatal("second should hold the lock")
	}
	_ = second.Release()
}

func TestProbeMissingFile(t *testing.T) {
	held, err := daemon.Probe(filepath.Join(t.TempDir(), "missing", "x.lock"))
	if err != nil || held {
		t.Fatalf("probe = %v, %v", held, err)
	}
}
