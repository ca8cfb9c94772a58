package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	if err := WriteFileAtomic(path, []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q, want %q", got, "second")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode mismatch: got %v", info.Mode().Perm())
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestReadJSONMissingFile(t *testing.T) {
	var out map[string]int
	found, err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing file")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value.json")
	if err := WriteJSONAtomic(path, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	var out map[string]int
	found, err := ReadJSON(path, &out)
	if err != nil || !found {
		t.Fatalf("ReadJSON: found=%v err=%v", found, err)
	}
	if out["a"] != 1 {
		t.Fatalf("unexpected value: %v", out)
	}
}

func TestReadJSONCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	var out map[string]int
	found, err := ReadJSON(path, &out)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !found {
		t.Fatal("expected found=true when file exists")
	}
}
