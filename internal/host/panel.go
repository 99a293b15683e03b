package host

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// PanelConfig describes an output panel.
type PanelConfig struct {
	Name string
	// FileRegex extracts a file (group 1) and optionally a line (group 2)
	// from panel text.
	FileRegex string
	// LineRegex extracts a line number for the most recent file match when
	// FileRegex captures no line.
	LineRegex string
	// BaseDir resolves relative file matches.
	BaseDir       string
	WordWrap      bool
	LineNumbers   bool
	Gutter        bool
	ScrollPastEnd bool
	Syntax        string
}

// Location is a jump target found in panel text.
type Location struct {
	File string
	Line int
}

// Panel is a scrollable output surface.
type Panel interface {
	io.Writer
	Show()
	Close() error
	Closed() bool
	Locations() []Location
}

// PanelFactory opens panels.
type PanelFactory interface {
	OpenPanel(cfg PanelConfig) (Panel, error)
}

// TerminalPanel writes panel text through to an io.Writer and keeps a copy so
// jump targets can be extracted from it.
type TerminalPanel struct {
	cfg    PanelConfig
	out    io.Writer
	fileRe *regexp.Regexp
	lineRe *regexp.Regexp

	mu     sync.Mutex
	buf    bytes.Buffer
	shown  bool
	closed bool
}

// NewTerminalPanel creates a panel writing to out.
func NewTerminalPanel(cfg PanelConfig, out io.Writer) (*TerminalPanel, error) {
	p := &TerminalPanel{cfg: cfg, out: out}

	if cfg.FileRegex != "" {
		re, err := regexp.Compile(cfg.FileRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid file_regex %q: %w", cfg.FileRegex, err)
		}
		p.fileRe = re
	}
	if cfg.LineRegex != "" {
		re, err := regexp.Compile(cfg.LineRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid line_regex %q: %w", cfg.LineRegex, err)
		}
		p.lineRe = re
	}
	return p, nil
}

// Config returns the panel configuration.
func (p *TerminalPanel) Config() PanelConfig {
	return p.cfg
}

func (p *TerminalPanel) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, fmt.Errorf("panel %q is closed", p.cfg.Name)
	}
	p.buf.Write(b)
	if p.out == nil {
		return len(b), nil
	}
	return p.out.Write(b)
}

func (p *TerminalPanel) Show() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = true
}

// Shown reports whether Show was called.
func (p *TerminalPanel) Shown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}

func (p *TerminalPanel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *TerminalPanel) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Text returns everything written to the panel.
func (p *TerminalPanel) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.String()
}

// Locations scans the panel text line by line for jump targets.
func (p *TerminalPanel) Locations() []Location {
	if p.fileRe == nil {
		return nil
	}

	var locs []Location
	current := ""
	for _, line := range strings.Split(p.Text(), "\n") {
		if m := p.fileRe.FindStringSubmatch(line); m != nil && len(m) > 1 {
			current = p.resolve(m[1])
			if len(m) > 2 && m[2] != "" {
				n, _ := strconv.Atoi(m[2])
				locs = append(locs, Location{File: current, Line: n})
			}
			continue
		}
		if p.lineRe == nil || current == "" {
			continue
		}
		if m := p.lineRe.FindStringSubmatch(line); len(m) > 1 {
			n, _ := strconv.Atoi(m[1])
			locs = append(locs, Location{File: current, Line: n})
		}
	}
	return locs
}

func (p *TerminalPanel) resolve(file string) string {
	if filepath.IsAbs(file) || p.cfg.BaseDir == "" {
		return file
	}
	return filepath.Join(p.cfg.BaseDir, file)
}

// TerminalPanelFactory opens TerminalPanels on a shared writer and remembers
// the panel most recently opened under each name.
type TerminalPanelFactory struct {
	Out io.Writer

	mu     sync.Mutex
	panels map[string]*TerminalPanel
}

// OpenPanel creates a fresh panel, replacing any previous one with the same
// name.
func (f *TerminalPanelFactory) OpenPanel(cfg PanelConfig) (Panel, error) {
	p, err := NewTerminalPanel(cfg, f.Out)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panels == nil {
		f.panels = make(map[string]*TerminalPanel)
	}
	f.panels[cfg.Name] = p
	return p, nil
}

// Panel returns the panel last opened under name.
func (f *TerminalPanelFactory) Panel(name string) (*TerminalPanel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.panels[name]
	return p, ok
}
