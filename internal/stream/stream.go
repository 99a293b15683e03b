// Package stream provides the result sinks test output is written to.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/AndreyAkinshin/unittesting/internal/host"
)

// Stream is a writable, closable result sink.
type Stream interface {
	io.Writer
	Flush() error
	Close() error
	Closed() bool
}

// File is a buffered Stream backed by a file on disk.
type File struct {
	path   string
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// CreateFile creates the parent directories of path, removes any existing
// file there and opens a fresh one, so each run starts with an empty file.
func CreateFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove previous output: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &File{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file path.
func (s *File) Path() string {
	return s.path
}

func (s *File) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.w.Write(p)
}

func (s *File) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.w.Flush()
}

// Close flushes and closes the file. Closing twice is a no-op.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (s *File) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Panel adapts a host panel to a Stream.
type Panel struct {
	panel host.Panel
}

// NewPanel wraps panel.
func NewPanel(panel host.Panel) *Panel {
	return &Panel{panel: panel}
}

// Host returns the wrapped panel.
func (s *Panel) Host() host.Panel {
	return s.panel
}

func (s *Panel) Write(p []byte) (int, error) {
	if s.panel.Closed() {
		return 0, os.ErrClosed
	}
	return s.panel.Write(p)
}

// Flush is a no-op; panel writes are visible immediately.
func (s *Panel) Flush() error {
	return nil
}

func (s *Panel) Close() error {
	if s.panel.Closed() {
		return nil
	}
	return s.panel.Close()
}

func (s *Panel) Closed() bool {
	return s.panel.Closed()
}
