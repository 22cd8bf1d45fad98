package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDir_CreatesNestedPath(t *testing.T) {
	root := t.TempDir()

	err := EnsureDir(root, "spells", "cache")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, statErr := os.Stat(filepath.Join(root, "spells", "cache"))
	if statErr != nil {
		t.Fatalf("expected directory to exist: %v", statErr)
	}
	if !info.IsDir() {
		t.Fatal("expected a directory")
	}
}

func TestEnsureDir_ExistingPathIsNoop(t *testing.T) {
	root := t.TempDir()

	if err := EnsureDir(root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := EnsureDir(root); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
}

func TestWriteFileAtomic_RoundTrip(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "spells", "fireball.json")

	err := WriteFileAtomic(path, []byte(`{"name":"Fireball"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read back failed: %v", readErr)
	}
	if string(got) != `{"name":"Fireball"}` {
		t.Errorf("unexpected content: %s", got)
	}
}

func TestWriteFileAtomic_OverwriteReplacesContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "entry.json")

	if err := WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read back failed: %v", readErr)
	}
	if string(got) != "second" {
		t.Errorf("expected last write to win, got: %s", got)
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "entry.json")

	if err := WriteFileAtomic(path, []byte("payload")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, readErr := os.ReadDir(root)
	if readErr != nil {
		t.Fatalf("readdir failed: %v", readErr)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}
