package logrouter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blueenergy/strategy-supervisor/internal/logstream"
)

// No available library implements size-rotated file logging here (one
// reference repo writes parquet via DuckDB instead of rotating text
// logs, and none pull in a rotation library such as lumberjack).
// FileSink is therefore a small stdlib-only rotator — documented here,
// and in DESIGN.md, as the one ambient concern this module implements
// without a third-party dependency.

const (
	// DefaultMaxBytes is the default per-file rotation threshold (10 MiB).
	DefaultMaxBytes = 10 * 1024 * 1024
	// DefaultBackups is the default number of rotated backups to retain.
	DefaultBackups = 5
)

// FileSink is the worker's dedicated log file at
// <log_root>/workers/<user_id>_<symbol>_<strategy_key>.log, rotated at
// MaxBytes with Backups kept, UTF-8 encoded (Go strings already are).
type FileSink struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	backups  int
	file     *os.File
	size     int64
}

// NewFileSink opens (creating directories as needed) the log file at
// path.
func NewFileSink(path string, maxBytes int64, backups int) (*FileSink, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if backups <= 0 {
		backups = DefaultBackups
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, size, err := openForAppend(path)
	if err != nil {
		return nil, err
	}

	return &FileSink{path: path, maxBytes: maxBytes, backups: backups, file: f, size: size}, nil
}

func openForAppend(path string) (*os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}

	return f, info.Size(), nil
}

// Write appends record as a JSON line, rotating first if the file would
// exceed maxBytes.
func (s *FileSink) Write(record logstream.Record) error {
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}

	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size+int64(len(line)) > s.maxBytes {
		if err := s.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := s.file.Write(line)
	s.size += int64(n)

	return err
}

func (s *FileSink) rotateLocked() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close log file before rotation: %w", err)
	}

	for i := s.backups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", s.path, i)
		dst := fmt.Sprintf("%s.%d", s.path, i+1)

		if _, err := os.Stat(src); err == nil {
			_ = os.Rename(src, dst)
		}
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.path+".1"); err != nil {
			return fmt.Errorf("rotate log file: %w", err)
		}
	}

	f, size, err := openForAppend(s.path)
	if err != nil {
		return err
	}

	s.file = f
	s.size = size

	return nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.file.Close()
}
