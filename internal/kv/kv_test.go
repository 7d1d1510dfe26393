package kv

import (
	"path/filepath"
	"testing"
)

func testStore(t *testing.T, s Store) {
	t.Helper()

	// Absent key
	value, err := s.Get("missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if value != nil {
		t.Error("missing key should return nil")
	}

	// Set then get
	if err := s.Set("k1", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err = s.Get("k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != "v1" {
		t.Errorf("get = %q, want v1", value)
	}

	// Overwrite is last-write-wins
	if err := s.Set("k1", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, _ = s.Get("k1")
	if string(value) != "v2" {
		t.Errorf("get after overwrite = %q, want v2", value)
	}

	// MGet aligns results with keys, nil for misses
	if err := s.Set("k3", []byte("v3")); err != nil {
		t.Fatalf("set: %v", err)
	}
	values, err := s.MGet([]string{"k1", "k2", "k3"})
	if err != nil {
		t.Fatalf("mget: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("mget returned %d values, want 3", len(values))
	}
	if string(values[0]) != "v2" || values[1] != nil || string(values[2]) != "v3" {
		t.Errorf("mget = [%q %q %q]", values[0], values[1], values[2])
	}

	// Delete
	if err := s.Del("k1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	value, _ = s.Get("k1")
	if value != nil {
		t.Error("deleted key should return nil")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	testStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv_test.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}
