// Package filestore reads and writes JSON documents and line-oriented text
// files in the local replica directory.
//
// Every operation reports failure through an error carrying one of the kind
// sentinels below, so callers can tell a missing file from a corrupt one
// with errors.Is. Nothing here panics or keeps state.
package filestore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotExist is returned when the file to load does not exist.
	ErrNotExist = errors.New("file does not exist")

	// ErrCorrupt is returned when a file exists but cannot be read or parsed.
	ErrCorrupt = errors.New("file is unreadable or corrupt")

	// ErrWrite is returned when a file cannot be written.
	ErrWrite = errors.New("file could not be written")
)

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %w", ErrWrite, dir, err)
	}
	return nil
}

// LoadJSON decodes the JSON document at path into v.
func LoadJSON(path string, v any) error {
	data, err := read(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrCorrupt, path, err)
	}
	return nil
}

// SaveJSON encodes v and writes it to path atomically.
func SaveJSON(v any, path string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrWrite, path, err)
	}
	return writeAtomic(path, data)
}

// LoadText returns the lines of the file at path with surrounding
// whitespace trimmed from each line.
func LoadText(path string) ([]string, error) {
	data, err := read(path)
	if err != nil {
		return nil, err
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", ErrCorrupt, path, err)
	}
	return lines, nil
}

// SaveText writes lines to path, each terminated by a newline.
func SaveText(lines []string, path string) error {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return writeAtomic(path, buf.Bytes())
}

func read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrCorrupt, path, err)
	}
	return data, nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over path so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", ErrWrite, path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s: %w", ErrWrite, path, err)
	}
	return nil
}
