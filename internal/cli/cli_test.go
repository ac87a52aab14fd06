package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miradorstack/mirador-thermal/internal/cache"
	"github.com/miradorstack/mirador-thermal/internal/config"
	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/parser"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, logLevel, outputFmt = "", "", "text"
		inspectLatest, inspectTable = false, false
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSample(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(parser.SampleLog), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestInspectJSON(t *testing.T) {
	path := writeSample(t, "capture.log")

	out, err := execute(t, "inspect", path, "--output", "json", "--log-level", "error")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if snap.Source != models.SourceUpload || snap.Summary.SensorCount != 5 {
		t.Fatalf("unexpected snapshot: %+v", snap.Summary)
	}
}

func TestInspectLatestText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aida64_log_log.csv")
	log := "Date,Time,CPU,CPU Package,HDD1\n6/5/2025,4:36:42 PM,58,52,37\n6/5/2025,4:36:43 PM,61,54,37\n"
	if err := os.WriteFile(path, []byte(log), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := execute(t, "inspect", path, "--latest", "--log-level", "error")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"CPU Package", "HDD1", string(models.SourceLog)} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectMissingFile(t *testing.T) {
	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "absent.csv"), "--latest", "--log-level", "error")
	if err == nil {
		t.Fatalf("expected an error for a missing log")
	}
}

func TestInspectRejectsUnknownFormat(t *testing.T) {
	path := writeSample(t, "capture.csv")
	if _, err := execute(t, "inspect", path, "-o", "yaml", "--log-level", "error"); err == nil {
		t.Fatalf("expected unknown output format error")
	}
}

func TestNewCacheSelection(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, ok := newCache(config.CacheConfig{}, logger).(*cache.MemoryProvider); !ok {
		t.Fatalf("disabled cache should use the in-process provider")
	}
	if _, ok := newCache(config.CacheConfig{Enabled: true}, logger).(*cache.MemoryProvider); !ok {
		t.Fatalf("cache without an address should use the in-process provider")
	}
}
