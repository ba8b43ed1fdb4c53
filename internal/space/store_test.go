package space

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "spaces-registry.json")
	s := NewStore(path)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	want := []Record{
		{Window: w1, OriginalDesktop: 1, CreatedDesktop: 4},
		{Window: w2, OriginalDesktop: 0, CreatedDesktop: 5},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !strings.Contains(string(data), `"2026-01-02T03:04:05Z"`) || !strings.Contains(string(data), "\n  ") {
		t.Fatalf("unexpected file contents:\n%s", data)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.json"))
	got, err := s.Load()
	if err != nil || got != nil {
		t.Fatalf("Load() = %v, %v; want nil, nil", got, err)
	}
}

func TestStoreLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{"},
		{name: "wrong version", content: `{"version": 2, "spaces": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "spaces-registry.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := NewStore(path).Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStoreLoadSkipsInvalidRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spaces-registry.json")
	content := `{"version": 1, "spaces": [
		{"window": 0, "original_desktop": 0, "created_desktop": 1},
		{"window": 16777217, "original_desktop": -1, "created_desktop": 1},
		{"window": 16777218, "original_desktop": 0, "created_desktop": 3}
	]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].Window != w2 {
		t.Fatalf("Load() = %+v, want only w2", got)
	}
}

func TestStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spaces-registry.json")
	s := NewStore(path)
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}
	if err := s.Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}
