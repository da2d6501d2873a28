package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultMaxSize is the rotation threshold used when none is configured.
const DefaultMaxSize = "10MB"

// RotationConfig configures size-based log file rotation.
type RotationConfig struct {
	// MaxSize is a human-readable size ("10MB", "512KiB"). Empty uses DefaultMaxSize.
	MaxSize string

	// MaxBackups is the number of rotated files to keep. Zero keeps all.
	MaxBackups int
}

// RotatingWriter is an io.WriteCloser that renames the active log file
// aside once it would grow past MaxSize.
type RotatingWriter struct {
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotatingWriter opens (or creates) the log file at path.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	raw := cfg.MaxSize
	if raw == "" {
		raw = DefaultMaxSize
	}
	maxSize, err := humanize.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing rotation max size %q: %w", raw, err)
	}
	if maxSize == 0 {
		return nil, fmt.Errorf("rotation max size must be positive, got %q", raw)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{
		path:       path,
		maxSize:    int64(maxSize),
		maxBackups: cfg.MaxBackups,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends p to the log, rotating first if needed.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the active file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		w.file = nil
		return fmt.Errorf("syncing log file: %w", err)
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = file
	w.size = info.Size()
	return nil
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing current file: %w", err)
	}
	w.file = nil

	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	rotated := fmt.Sprintf("%s.%s%s", base, time.Now().Format("2006-01-02-150405.000"), ext)
	if err := os.Rename(w.path, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}

	if err := w.open(); err != nil {
		return err
	}
	w.prune()
	return nil
}

// prune removes the oldest rotated files beyond maxBackups. Errors are ignored.
func (w *RotatingWriter) prune() {
	if w.maxBackups <= 0 {
		return
	}

	ext := filepath.Ext(w.path)
	pattern := strings.TrimSuffix(w.path, ext) + ".*" + ext
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	backups := matches[:0]
	for _, m := range matches {
		if m != w.path {
			backups = append(backups, m)
		}
	}
	if len(backups) <= w.maxBackups {
		return
	}

	// Timestamped names sort chronologically.
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-w.maxBackups] {
		_ = os.Remove(old)
	}
}
