package logsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadPlainPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aida64_log_log.csv")
	if err := os.WriteFile(path, []byte("CPU,Time\n50,12:00\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	content, err := NewReader(path, nil).Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Data != "CPU,Time\n50,12:00\n" {
		t.Fatalf("unexpected content: %q", content.Data)
	}
	if content.Size != int64(len(content.Data)) {
		t.Fatalf("unexpected size %d", content.Size)
	}
}

func TestReadMissingFileIsNotFound(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.csv"), nil).Read(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrReadFailed) {
		t.Fatalf("missing file must not be reported as a read failure")
	}
}

func TestReadDirectoryIsReadError(t *testing.T) {
	_, err := NewReader(t.TempDir(), nil).Read(context.Background())
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("expected ErrReadFailed, got %v", err)
	}
}

func TestReadGlobPicksNewest(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "logs", "aida64_a.csv")
	newer := filepath.Join(dir, "logs", "nested", "aida64_b.csv")
	for _, p := range []string{older, newer} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(older, []byte("old"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(newer, []byte("new"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	content, err := NewReader(filepath.Join(dir, "logs", "**", "aida64_*.csv"), nil).Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Data != "new" {
		t.Fatalf("expected newest match, got %q from %s", content.Data, content.Path)
	}
}

func TestReadGlobNoMatch(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "*.csv"), nil).Read(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty glob, got %v", err)
	}
}

func TestFileInfoKeyChangesWithModTime(t *testing.T) {
	a := FileInfo{Path: "x", Size: 1, ModTime: time.Unix(1, 0)}
	b := FileInfo{Path: "x", Size: 1, ModTime: time.Unix(2, 0)}
	if a.Key() == b.Key() {
		t.Fatalf("expected distinct keys")
	}
}
