package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/meridianhq/shiplog/logger"
)

const fileBufferSize = 32 * 1024

// FileSink appends records to a local file as JSON lines. Drain flushes the
// write buffer and syncs the file to disk.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool
}

var _ logger.Sink = (*FileSink)(nil)

// NewFile opens (or creates) the log file at path, creating parent
// directories as needed.
func NewFile(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return &FileSink{
		file:   file,
		writer: bufio.NewWriterSize(file, fileBufferSize),
	}, nil
}

// Submit appends one record as a JSON line.
func (s *FileSink) Submit(_ context.Context, rec logger.Record) error {
	data, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// Drain flushes buffered lines and syncs to disk.
func (s *FileSink) Drain(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flushing log file: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing log file: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Subsequent submissions fail with
// ErrClosed.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("flushing log file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}
