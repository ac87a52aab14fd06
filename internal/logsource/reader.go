// Package logsource locates and loads the AIDA64 CSV log from disk.
package logsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/miradorstack/mirador-thermal/internal/utils"
)

var (
	// ErrNotFound signals that nothing exists at the configured path.
	ErrNotFound = errors.New("log file not found")
	// ErrReadFailed signals any other I/O failure while reading the log.
	ErrReadFailed = errors.New("log file read failed")
)

// FileInfo identifies one version of the log file on disk.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Key is a stable identifier for this version of the file, suitable as a cache key.
func (f FileInfo) Key() string {
	return fmt.Sprintf("%s:%d:%d", f.Path, f.Size, f.ModTime.UnixNano())
}

// Content is the full text of the log plus the identity it was read at.
type Content struct {
	FileInfo
	Data string
}

// Reader reads the configured log path. The path may be a doublestar glob.
type Reader struct {
	pattern string
	logger  *slog.Logger
}

// NewReader returns a Reader for path.
func NewReader(path string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{pattern: filepath.Clean(path), logger: logger}
}

// Pattern returns the configured path or glob.
func (r *Reader) Pattern() string {
	return r.pattern
}

// Stat resolves the pattern to a concrete file without reading it.
func (r *Reader) Stat(ctx context.Context) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}

	path, err := r.resolve()
	if err != nil {
		return FileInfo{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, r.fail(path, err)
	}
	if info.IsDir() {
		return FileInfo{}, r.fail(path, fmt.Errorf("%s is a directory", path))
	}
	return FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Read loads the full text of the resolved log file.
func (r *Reader) Read(ctx context.Context) (Content, error) {
	info, err := r.Stat(ctx)
	if err != nil {
		return Content{}, err
	}

	data, err := os.ReadFile(info.Path)
	if err != nil {
		return Content{}, r.fail(info.Path, err)
	}
	return Content{FileInfo: info, Data: string(data)}, nil
}

func (r *Reader) resolve() (string, error) {
	if !hasMeta(r.pattern) {
		return r.pattern, nil
	}

	matches, err := doublestar.FilepathGlob(r.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", r.fail(r.pattern, err)
	}
	if len(matches) == 0 {
		return "", r.fail(r.pattern, fs.ErrNotExist)
	}

	newest := ""
	var newestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = m, info.ModTime()
		}
	}
	if newest == "" {
		return "", r.fail(r.pattern, fs.ErrNotExist)
	}
	return newest, nil
}

func (r *Reader) fail(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("log file not found", slog.String("path", path))
		return utils.NewAppError("logsource.Read", fmt.Sprintf("file not found at: %s", path), errors.Join(ErrNotFound, err))
	}
	r.logger.Warn("log file read failed", slog.String("path", path), slog.Any("error", err))
	return utils.NewAppError("logsource.Read", fmt.Sprintf("failed to read %s", path), errors.Join(ErrReadFailed, err))
}

func hasMeta(p string) bool {
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
