// ============================================================================
// mExec - Embedded Script Engine
// ============================================================================
//
// Package:     host
// Description: Headless host application: documents on disk, selection,
//              clipboard and interactive prompts for script commands
// Author:      Mike Stoffels
// Created:     2025-12-15
// License:     MIT
// ============================================================================

package host

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/atotto/clipboard"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
	"github.com/msto63/mExec/internal/engine"
)

// Find flags accepted by SCI_FIND and SCI_REPLACE
const (
	FindMatchCase = 1 << iota
	FindWholeWord
	FindFromStart
)

// document is an open file. sel is the selected byte range.
type document struct {
	path     string
	text     string
	selStart int
	selEnd   int
	modified bool
}

// Headless implements engine.Host without a user interface. Documents are
// files held in memory until saved.
type Headless struct {
	logger *mdwlog.Logger

	mu       sync.Mutex
	docs     map[string]*document
	order    []string
	current  string
	focus    string
	messages []string

	clipMu    sync.Mutex
	clipText  string
	useSystem bool

	promptMu sync.Mutex
	in       *bufio.Reader
	out      io.Writer
}

var _ engine.Host = (*Headless)(nil)

// Config configures a headless host
type Config struct {
	// SystemClipboard uses the OS clipboard when available
	SystemClipboard bool
	// Input and Output are used by INPUTBOX; nil disables prompting
	Input  io.Reader
	Output io.Writer
	Logger *mdwlog.Logger
}

// New creates a headless host
func New(cfg Config) *Headless {
	if cfg.Logger == nil {
		cfg.Logger = mdwlog.GetDefault()
	}
	h := &Headless{
		logger:    cfg.Logger.WithField("component", "host"),
		docs:      make(map[string]*document),
		focus:     "doc",
		useSystem: cfg.SystemClipboard && !clipboard.Unsupported,
		out:       cfg.Output,
	}
	if cfg.Input != nil {
		h.in = bufio.NewReader(cfg.Input)
	}
	return h
}

func noDocument() error {
	return mdwerror.New("no document is open").
		WithCode(mdwerror.CodeNotFound).
		WithOperation("host.document")
}

// doc returns the document for path, the current one for an empty path.
// Callers hold mu.
func (h *Headless) doc(path string) (*document, error) {
	if path == "" {
		path = h.current
	}
	if d, ok := h.docs[path]; ok {
		return d, nil
	}
	// a bare file name selects an open document with that name
	for _, p := range h.order {
		if strings.EqualFold(filepath.Base(p), path) {
			return h.docs[p], nil
		}
	}
	if path == "" {
		return nil, noDocument()
	}
	return nil, mdwerror.New("document is not open: " + path).
		WithCode(mdwerror.CodeNotFound).
		WithOperation("host.document")
}

// OpenDocument loads a file, or creates an empty document for a new one
func (h *Headless) OpenDocument(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.docs[path]; ok {
		h.current = path
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return mdwerror.Wrap(err, "failed to open document").
			WithCode(mdwerror.CodeNotFound).
			WithOperation("host.OpenDocument").
			WithDetail("path", path)
	}
	h.docs[path] = &document{path: path, text: string(data)}
	h.order = append(h.order, path)
	h.current = path
	h.logger.Debug("document opened", mdwlog.Fields{"path": path, "size": len(data)})
	return nil
}

// CloseDocument closes a document without saving it
func (h *Headless) CloseDocument(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc(path)
	if err != nil {
		return err
	}
	delete(h.docs, d.path)
	for i, p := range h.order {
		if p == d.path {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	if h.current == d.path {
		h.current = ""
		if n := len(h.order); n > 0 {
			h.current = h.order[n-1]
		}
	}
	return nil
}

// SaveDocument writes a document to its file
func (h *Headless) SaveDocument(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc(path)
	if err != nil {
		return err
	}
	return h.write(d, d.path)
}

// SaveDocumentAs writes the current document to path and renames it
func (h *Headless) SaveDocumentAs(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc("")
	if err != nil {
		return err
	}
	if err := h.write(d, path); err != nil {
		return err
	}

	delete(h.docs, d.path)
	for i, p := range h.order {
		if p == d.path {
			h.order[i] = path
		}
	}
	d.path = path
	h.docs[path] = d
	h.current = path
	return nil
}

// SaveAllDocuments writes every modified document
func (h *Headless) SaveAllDocuments() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range h.order {
		d := h.docs[p]
		if !d.modified {
			continue
		}
		if err := h.write(d, d.path); err != nil {
			return err
		}
	}
	return nil
}

func (h *Headless) write(d *document, path string) error {
	if err := os.WriteFile(path, []byte(d.text), 0644); err != nil {
		return mdwerror.Wrap(err, "failed to save document").
			WithCode(mdwerror.CodeInternal).
			WithOperation("host.save").
			WithDetail("path", path)
	}
	d.modified = false
	return nil
}

// SwitchDocument makes an open document current
func (h *Headless) SwitchDocument(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc(path)
	if err != nil {
		return err
	}
	h.current = d.path
	return nil
}

// CurrentText returns the text of the current document
func (h *Headless) CurrentText() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc("")
	if err != nil {
		return "", err
	}
	return d.text, nil
}

// SetCurrentText replaces the text of the current document
func (h *Headless) SetCurrentText(text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc("")
	if err != nil {
		return err
	}
	d.text = text
	d.selStart, d.selEnd = 0, 0
	d.modified = true
	return nil
}

// Selection returns the selected text of the current document
func (h *Headless) Selection() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc("")
	if err != nil {
		return "", err
	}
	return d.text[d.selStart:d.selEnd], nil
}

// SetSelection replaces the selection and selects the new text
func (h *Headless) SetSelection(text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc("")
	if err != nil {
		return err
	}
	d.text = d.text[:d.selStart] + text + d.text[d.selEnd:]
	d.selEnd = d.selStart + len(text)
	d.modified = true
	return nil
}

// Find selects the next match after the selection and returns its
// position, or -1
func (h *Headless) Find(flags, text string) (int, error) {
	f, err := parseFlags(flags)
	if err != nil {
		return -1, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc("")
	if err != nil {
		return -1, err
	}
	from := d.selEnd
	if f&FindFromStart != 0 {
		from = 0
	}
	pos := find(d.text, text, from, f)
	if pos >= 0 {
		d.selStart, d.selEnd = pos, pos+len(text)
	}
	return pos, nil
}

// Replace replaces every match and returns the number of replacements
func (h *Headless) Replace(flags, findText, replace string) (int, error) {
	f, err := parseFlags(flags)
	if err != nil {
		return 0, err
	}
	if findText == "" {
		return 0, mdwerror.New("empty search text").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("host.Replace")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc("")
	if err != nil {
		return 0, err
	}

	var sb strings.Builder
	n, last := 0, 0
	for pos := find(d.text, findText, 0, f); pos >= 0; pos = find(d.text, findText, last, f) {
		sb.WriteString(d.text[last:pos])
		sb.WriteString(replace)
		last = pos + len(findText)
		n++
	}
	if n > 0 {
		sb.WriteString(d.text[last:])
		d.text = sb.String()
		d.selStart, d.selEnd = 0, 0
		d.modified = true
	}
	return n, nil
}

func parseFlags(flags string) (int, error) {
	if flags == "" {
		return 0, nil
	}
	f, err := strconv.Atoi(flags)
	if err != nil {
		return 0, mdwerror.New("invalid search flags: " + flags).
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("host.parseFlags")
	}
	return f, nil
}

func find(text, sub string, from, flags int) int {
	if sub == "" || from > len(text) {
		return -1
	}
	hay, needle := text, sub
	if flags&FindMatchCase == 0 {
		hay, needle = strings.ToLower(text), strings.ToLower(sub)
	}
	for from <= len(hay)-len(needle) {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			return -1
		}
		pos := from + i
		if flags&FindWholeWord == 0 || isWholeWord(text, pos, len(sub)) {
			return pos
		}
		from = pos + 1
	}
	return -1
}

func isWholeWord(text string, pos, n int) bool {
	isWord := func(b byte) bool {
		r := rune(b)
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
	}
	if pos > 0 && isWord(text[pos-1]) {
		return false
	}
	if end := pos + n; end < len(text) && isWord(text[end]) {
		return false
	}
	return true
}

// ClipboardText returns the clipboard contents
func (h *Headless) ClipboardText() (string, error) {
	h.clipMu.Lock()
	defer h.clipMu.Unlock()

	if h.useSystem {
		text, err := clipboard.ReadAll()
		if err == nil {
			return text, nil
		}
		h.logger.Debug("system clipboard unavailable", mdwlog.Fields{"error": err.Error()})
	}
	return h.clipText, nil
}

// SetClipboardText replaces the clipboard contents
func (h *Headless) SetClipboardText(text string) error {
	h.clipMu.Lock()
	defer h.clipMu.Unlock()

	h.clipText = text
	if h.useSystem {
		if err := clipboard.WriteAll(text); err != nil {
			h.logger.Debug("system clipboard unavailable", mdwlog.Fields{"error": err.Error()})
		}
	}
	return nil
}

// SendMessage records the message. A headless host has no window to
// deliver it to, so the result is always 0.
func (h *Headless) SendMessage(target, msg, wparam, lparam string) (engine.MessageResult, error) {
	h.mu.Lock()
	h.messages = append(h.messages, fmt.Sprintf("%s %s %s %s", target, msg, wparam, lparam))
	h.mu.Unlock()

	h.logger.Debug("message sent", mdwlog.Fields{"target": target, "msg": msg, "wparam": wparam, "lparam": lparam})
	return engine.MessageResult{Result: "0", WParam: wparam, LParam: lparam}, nil
}

// Messages returns the messages sent so far
func (h *Headless) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

// MenuCommand fails: there is no menu without a user interface
func (h *Headless) MenuCommand(path string) error {
	return mdwerror.New("menu commands are not available in headless mode").
		WithCode(mdwerror.CodeNotFound).
		WithOperation("host.MenuCommand").
		WithDetail("menu", path)
}

// RunExternal starts a program without waiting for it
func (h *Headless) RunExternal(command string) error {
	args := strings.Fields(command)
	if len(args) == 0 {
		return mdwerror.New("empty command").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("host.RunExternal")
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return mdwerror.Wrap(err, "failed to start program").
			WithCode(mdwerror.CodeProcessFailed).
			WithOperation("host.RunExternal").
			WithDetail("command", command)
	}
	go cmd.Wait()
	h.logger.Info("external program started", mdwlog.Fields{"command": command, "pid": cmd.Process.Pid})
	return nil
}

// SetFocus records which pane has the focus: doc or con
func (h *Headless) SetFocus(target string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if target == "" {
		target = "doc"
	}
	h.focus = target
	return nil
}

// Focus returns the focused pane
func (h *Headless) Focus() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focus
}

// Prompt writes message and reads one line of input. An empty answer
// yields initial.
func (h *Headless) Prompt(message, initial string) (string, error) {
	if h.in == nil {
		return "", mdwerror.New("no input available for prompts").
			WithCode(mdwerror.CodeNotFound).
			WithOperation("host.Prompt")
	}

	h.promptMu.Lock()
	defer h.promptMu.Unlock()

	if h.out != nil {
		if initial != "" {
			fmt.Fprintf(h.out, "%s [%s]: ", message, initial)
		} else {
			fmt.Fprintf(h.out, "%s: ", message)
		}
	}
	line, err := h.in.ReadString('\n')
	if err != nil && line == "" {
		return "", mdwerror.Wrap(err, "failed to read input").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("host.Prompt")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return initial, nil
	}
	return line, nil
}

// Macro resolves document related macros for the current document
func (h *Headless) Macro(name string) (string, bool) {
	if name == engine.MacroNppDirectory {
		exe, err := os.Executable()
		if err != nil {
			return "", false
		}
		return filepath.Dir(exe), true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.doc("")
	if err != nil {
		switch name {
		case engine.MacroFullCurrentPath, engine.MacroCurrentDirectory, engine.MacroFileName,
			engine.MacroNamePart, engine.MacroExtPart, engine.MacroCurrentWord,
			engine.MacroCurrentLine, engine.MacroCurrentColumn:
			return "", true
		}
		return "", false
	}

	base := filepath.Base(d.path)
	ext := filepath.Ext(base)
	switch name {
	case engine.MacroFullCurrentPath:
		return d.path, true
	case engine.MacroCurrentDirectory:
		return filepath.Dir(d.path), true
	case engine.MacroFileName:
		return base, true
	case engine.MacroNamePart:
		return strings.TrimSuffix(base, ext), true
	case engine.MacroExtPart:
		return ext, true
	case engine.MacroCurrentWord:
		if d.selEnd > d.selStart {
			return d.text[d.selStart:d.selEnd], true
		}
		return wordAt(d.text, d.selStart), true
	case engine.MacroCurrentLine:
		return strconv.Itoa(strings.Count(d.text[:d.selStart], "\n") + 1), true
	case engine.MacroCurrentColumn:
		return strconv.Itoa(d.selStart - strings.LastIndex(d.text[:d.selStart], "\n") - 1), true
	}
	return "", false
}

func wordAt(text string, pos int) string {
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }
	start, end := pos, pos
	for start > 0 && isWord(rune(text[start-1])) {
		start--
	}
	for end < len(text) && isWord(rune(text[end])) {
		end++
	}
	return text[start:end]
}
