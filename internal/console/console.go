// ============================================================================
// mExec - Embedded Script Engine
// ============================================================================
//
// Package:     console
// Description: Script console: output buffer, colours, output filter and
//              buffer load/save for CON_* commands
// Author:      Mike Stoffels
// Created:     2025-12-15
// License:     MIT
// ============================================================================

package console

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	"github.com/msto63/mExec/internal/engine"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

// Console implements engine.Console on a writer. Every printed line is
// kept in a buffer for CON_SAVETO.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	colour  bool
	style   lipgloss.Style
	filter  *Filter
	visible bool
	buffer  []string
}

var _ engine.Console = (*Console)(nil)

// Config configures a console
type Config struct {
	Output io.Writer
	// Colour enables styled output; it is turned off for writers that
	// are not terminals
	Colour bool
}

// New creates a console. A nil output writes to stdout.
func New(cfg Config) *Console {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	return &Console{
		out:     cfg.Output,
		colour:  cfg.Colour && isTerminal(cfg.Output),
		style:   lipgloss.NewStyle(),
		visible: true,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Print writes a line unless the filter hides it
func (c *Console) Print(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filter != nil && !c.filter.Match(line) {
		return
	}
	c.buffer = append(c.buffer, line)
	if c.colour {
		line = c.style.Render(line)
	}
	c.write(line)
}

// PrintError writes an error line; errors bypass the filter
func (c *Console) PrintError(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buffer = append(c.buffer, line)
	if c.colour {
		line = errorStyle.Render(line)
	}
	c.write(line)
}

// write emits one line. Callers hold mu.
func (c *Console) write(line string) {
	if !c.visible {
		return
	}
	io.WriteString(c.out, line+"\n")
}

// Clear empties the buffer and, on a terminal, the screen
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buffer = nil
	if c.visible && isTerminal(c.out) {
		io.WriteString(c.out, "\x1b[H\x1b[2J")
	}
}

// SetColour sets the text colours: "fg=<colour> [bg=<colour>]". Colours
// are names, ANSI numbers or #rrggbb; an empty spec restores the defaults.
func (c *Console) SetColour(spec string) error {
	style, err := ParseColour(spec)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.style = style
	c.mu.Unlock()
	return nil
}

// SetFilter installs an output filter, see ParseFilter. An empty spec or
// "off" removes it.
func (c *Console) SetFilter(spec string) error {
	f, err := ParseFilter(spec)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	return nil
}

// LoadFrom prints the lines of a file
func (c *Console) LoadFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return mdwerror.Wrap(err, "failed to load console text").
			WithCode(mdwerror.CodeNotFound).
			WithOperation("console.LoadFrom").
			WithDetail("path", path)
	}
	for _, line := range engine.SplitScript(string(data)) {
		c.Print(line)
	}
	return nil
}

// SaveTo writes the buffer to a file, appending when appendMode is set
func (c *Console) SaveTo(path string, appendMode bool) error {
	c.mu.Lock()
	text := strings.Join(c.buffer, "\n")
	c.mu.Unlock()
	if text != "" {
		text += "\n"
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return mdwerror.Wrap(err, "failed to save console text").
			WithCode(mdwerror.CodeInternal).
			WithOperation("console.SaveTo").
			WithDetail("path", path)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return mdwerror.Wrap(err, "failed to save console text").
			WithCode(mdwerror.CodeInternal).
			WithOperation("console.SaveTo").
			WithDetail("path", path)
	}
	return nil
}

// SetVisible shows or hides the console. Hidden output is still buffered.
func (c *Console) SetVisible(visible bool) {
	c.mu.Lock()
	c.visible = visible
	c.mu.Unlock()
}

// Visible reports whether output is shown
func (c *Console) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Lines returns a copy of the buffer
func (c *Console) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.buffer...)
}
