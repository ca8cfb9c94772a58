package peerindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestLoadSkipsInvalidKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dm_index.json")
	if err := os.WriteFile(path, []byte(`{"12":" Ann ","abc":"x","0":"zero"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	index, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if diff := cmp.Diff(map[uint64]string{12: "Ann"}, index); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	index, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil || len(index) != 0 {
		t.Fatalf("expected empty index, got %v err=%v", index, err)
	}
}

func TestWriterRemember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dm_index.json")
	w := NewWriter(path)
	changed, err := w.Remember(5, "Bo")
	if err != nil || !changed {
		t.Fatalf("first Remember: changed=%v err=%v", changed, err)
	}
	changed, err = w.Remember(5, "Bo")
	if err != nil || changed {
		t.Fatalf("repeat Remember: changed=%v err=%v", changed, err)
	}
	if _, err := w.Remember(6, "Cy"); err != nil {
		t.Fatal(err)
	}
	index, _ := Load(path)
	if diff := cmp.Diff(map[uint64]string{5: "Bo", 6: "Cy"}, index); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestWatchReloadsOnAtomicWrite(t *testing.T) {
	defer goleak.VerifyNone(t)
	path := filepath.Join(t.TempDir(), "dm_index.json")
	got := make(chan map[uint64]string, 4)

	w, err := Watch(context.Background(), path, nil, func(index map[uint64]string) { got <- index })
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	defer w.Close()

	if err := Save(path, map[uint64]string{9: "Dee"}); err != nil {
		t.Fatal(err)
	}
	select {
	case index := <-got:
		if index[9] != "Dee" {
			t.Fatalf("unexpected reloaded index: %v", index)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
