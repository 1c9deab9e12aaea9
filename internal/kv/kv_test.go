package kv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.yaml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := s.Get("ha_baseUrl"); ok {
		t.Error("expected missing key on empty store")
	}
}

func TestFileStoreWriteThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "state.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Set(map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Delete("b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if v, ok := reopened.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}
	if _, ok := reopened.Get("b"); ok {
		t.Error("deleted key should not survive reopen")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	_ = s.Set(map[string]string{"k": "v"})
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Errorf("Get(k) = %q, %v", v, ok)
	}
	_ = s.Delete("k", "missing")
	if _, ok := s.Get("k"); ok {
		t.Error("expected key to be deleted")
	}
}
