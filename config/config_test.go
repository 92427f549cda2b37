package config

import (
	"os"
	"path/filepath"
	"testing"
)

func write_cfg(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := New()
	if cfg.MaxInstructions() != 0 || cfg.MaxTime() != 0 {
		t.Errorf("budgets must default to unlimited")
	}
	if cfg.MaxPages() != DefaultMaxPages {
		t.Errorf("max pages: got %d", cfg.MaxPages())
	}
	if cfg.MaxRegionSize() != 1000 {
		t.Errorf("max region size: got %d", cfg.MaxRegionSize())
	}
}

func TestAddSingleFile(t *testing.T) {
	path := write_cfg(t, "a.json", `{"emulator": {"max-instructions": 5000}}`)
	cfg := New()
	if err := cfg.Add(path); err != nil {
		t.Fatal(err)
	}
	if cfg.MaxInstructions() != 5000 {
		t.Errorf("got %d, want 5000", cfg.MaxInstructions())
	}
	if cfg.MaxPages() != DefaultMaxPages {
		t.Errorf("untouched keys keep their defaults")
	}
}

func TestLaterFilesWin(t *testing.T) {
	first := write_cfg(t, "first.json", `{"emulator": {"max-instructions": 5000, "max-pages": 64}}`)
	second := write_cfg(t, "second.json", `{"emulator": {"max-instructions": 100}, "idempotency": {"max-region-size": 0}}`)

	cfg := New()
	if err := cfg.Add(first); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Add(second); err != nil {
		t.Fatal(err)
	}

	if cfg.MaxInstructions() != 100 {
		t.Errorf("later file must win, got %d", cfg.MaxInstructions())
	}
	if cfg.MaxPages() != 64 {
		t.Errorf("sibling keys of the first file must survive the merge, got %d", cfg.MaxPages())
	}
	if cfg.MaxRegionSize() != 0 {
		t.Errorf("got %d, want 0", cfg.MaxRegionSize())
	}
}

func TestAddMissingFile(t *testing.T) {
	cfg := New()
	if err := cfg.Add(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Errorf("expected an error for a missing config file")
	}
}
