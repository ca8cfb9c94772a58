package readstate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"switchscan/internal/fileutil"
	"switchscan/internal/services"
	"switchscan/internal/thread"
)

func TestUnreadAroundLastSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "read_state.json")
	const lastSeen = 1000.0
	if err := fileutil.WriteJSONAtomic(path, fileFormat{ReadIDs: []uint64{7}, LastSeenTS: lastSeen}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	tests := []struct {
		name string
		msg  thread.Message
		want bool
	}{
		{"newer", thread.Message{ID: 1, Timestamp: lastSeen + 1}, true},
		{"older", thread.Message{ID: 2, Timestamp: lastSeen - 1}, false},
		{"already read", thread.Message{ID: 7, Timestamp: lastSeen + 1}, false},
		{"from self", thread.Message{ID: 3, Timestamp: lastSeen + 1, FromSelf: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.Unread(tt.msg); got != tt.want {
				t.Fatalf("Unread = %v want %v", got, tt.want)
			}
		})
	}
}

func TestFirstRunMarksNothingUnread(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if store.Unread(thread.Message{ID: 1, Timestamp: 5}) {
		t.Fatal("expected nothing unread without a previous shutdown")
	}
}

func TestSaveWritesSortedIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "read_state.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	store.MarkRead(30)
	store.MarkRead(10)
	store.MarkRead(20)
	if !store.Dirty() {
		t.Fatal("expected store to be dirty after MarkRead")
	}
	now := time.Unix(2000, 0)
	if err := store.Save(now); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	var payload fileFormat
	if _, err := fileutil.ReadJSON(path, &payload); err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := fileFormat{ReadIDs: []uint64{10, 20, 30}, LastSeenTS: 2000}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.IsRead(20) || reopened.LastSeen() != 2000 {
		t.Fatalf("unexpected reopened state: read20=%v lastSeen=%v", reopened.IsRead(20), reopened.LastSeen())
	}
}

func TestCorruptFileReturnsDataError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "read_state.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	store, err := Open(path)
	if !errors.Is(err, services.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
	if store == nil || store.IsRead(1) {
		t.Fatal("expected an empty usable store")
	}
}
