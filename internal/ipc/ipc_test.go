package ipc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"switchscan/internal/ipc"
	"switchscan/internal/messenger"
)

type fakeBackend struct {
	mu      sync.Mutex
	said    []string
	halts   int
	signals []string
	stopped bool
}

func (b *fakeBackend) Status(context.Context) (messenger.Status, error) {
	return messenger.Status{SessionID: "s-1", Connection: "Logged in as bot", Connected: true, Threads: 3, Unread: 2, Mode: "items", Screen: messenger.ScreenChannels}, nil
}

func (b *fakeBackend) Threads() []messenger.ThreadInfo {
	return []messenger.ThreadInfo{
		{Ref: "dm:5", Kind: "dm", Label: "alice", Unread: 2},
		{Ref: "main", Kind: "main", Label: "#general", Messages: 25},
	}
}

func (b *fakeBackend) Say(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.said = append(b.said, text)
}

func (b *fakeBackend) Halt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halts++
}

func (b *fakeBackend) Signal(action string) error {
	if action == "wiggle" {
		return errors.New(`unknown action "wiggle"`)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = append(b.signals, action)
	return nil
}

func (b *fakeBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return messenger.ErrNotRunning
	}
	b.stopped = true
	return nil
}

func startServer(t *testing.T, backend ipc.Backend) (*ipc.Client, string) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "switchscan.sock")
	srv, err := ipc.NewServer(context.Background(), socket, backend, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, socket
}

func TestIPCServerClient(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	backend := &fakeBackend{}
	client, socket := startServer(t, backend)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.RequestID == "" {
		t.Fatal("expected request id to be echoed")
	}
	if !status.Connected || status.Unread != 2 || status.Screen != messenger.ScreenChannels {
		t.Fatalf("unexpected status %+v", status)
	}

	threads, err := client.Threads()
	if err != nil {
		t.Fatalf("Threads RPC failed: %v", err)
	}
	if diff := cmp.Diff(backend.Threads(), threads.Threads); diff != "" {
		t.Fatalf("threads (-want +got):\n%s", diff)
	}

	if resp, err := client.Say("hello"); err != nil || !resp.Queued {
		t.Fatalf("Say = %+v, %v", resp, err)
	}
	if _, err := client.Say("   "); err == nil {
		t.Fatal("blank say should fail")
	}
	if _, err := client.Halt(); err != nil {
		t.Fatalf("Halt: %v", err)
	}
	if resp, err := client.Signal("advance-short"); err != nil || !resp.Accepted {
		t.Fatalf("Signal = %+v, %v", resp, err)
	}
	if _, err := client.Signal("wiggle"); err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Fatalf("expected backend error, got %v", err)
	}

	if resp, err := client.Stop(); err != nil || !resp.Stopped {
		t.Fatalf("Stop = %+v, %v", resp, err)
	}
	if _, err := client.Stop(); err == nil {
		t.Fatal("second stop should report not running")
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if diff := cmp.Diff([]string{"hello"}, backend.said); diff != "" {
		t.Fatalf("said (-want +got):\n%s", diff)
	}
	if backend.halts != 1 || len(backend.signals) != 1 {
		t.Fatalf("halts=%d signals=%v", backend.halts, backend.signals)
	}
	if _, err := os.Stat(socket); err != nil {
		t.Fatalf("socket missing while serving: %v", err)
	}
}

func TestServerCloseRemovesSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "switchscan.sock")
	srv, err := ipc.NewServer(context.Background(), socket, &fakeBackend{}, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	srv.Close()
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("socket should be removed, stat err = %v", err)
	}
	if _, err := client.Status(); err == nil {
		t.Fatal("calls after close should fail")
	}
}

func TestNewServerRequiresBackend(t *testing.T) {
	if _, err := ipc.NewServer(context.Background(), filepath.Join(t.TempDir(), "s.sock"), nil, nil); err == nil {
		t.Fatal("expected error without backend")
	}
}
