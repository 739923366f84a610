package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
)

// fakeConsole records everything printed to it
type fakeConsole struct {
	mu      sync.Mutex
	lines   []string
	errs    []string
	colour  string
	filter  string
	visible bool
	cleared int
	saved   map[string]bool
}

func (c *fakeConsole) Print(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *fakeConsole) PrintError(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, line)
}

func (c *fakeConsole) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.cleared++
}

func (c *fakeConsole) SetColour(spec string) error {
	if spec == "bad" {
		return errors.New("invalid colour")
	}
	c.colour = spec
	return nil
}

func (c *fakeConsole) SetFilter(spec string) error {
	c.filter = spec
	return nil
}

func (c *fakeConsole) LoadFrom(path string) error {
	return nil
}

func (c *fakeConsole) SaveTo(path string, appendMode bool) error {
	if c.saved == nil {
		c.saved = make(map[string]bool)
	}
	c.saved[path] = appendMode
	return nil
}

func (c *fakeConsole) SetVisible(v bool) { c.visible = v }
func (c *fakeConsole) Visible() bool     { return c.visible }

func (c *fakeConsole) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func (c *fakeConsole) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.errs...)
}

// fakeHost keeps a single document and records calls
type fakeHost struct {
	mu        sync.Mutex
	calls     []string
	text      string
	selection string
	clipboard string
	answer    string
	fail      bool
	macros    map[string]string
}

func (h *fakeHost) record(call string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
	if h.fail {
		return errors.New("host failure")
	}
	return nil
}

func (h *fakeHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *fakeHost) OpenDocument(path string) error   { return h.record("open " + path) }
func (h *fakeHost) CloseDocument(path string) error  { return h.record("close " + path) }
func (h *fakeHost) SaveDocument(path string) error   { return h.record("save " + path) }
func (h *fakeHost) SaveDocumentAs(path string) error { return h.record("saveas " + path) }
func (h *fakeHost) SaveAllDocuments() error          { return h.record("saveall") }
func (h *fakeHost) SwitchDocument(path string) error { return h.record("switch " + path) }
func (h *fakeHost) CurrentText() (string, error)     { return h.text, h.record("text") }
func (h *fakeHost) SetCurrentText(text string) error {
	h.text = text
	return h.record("settext")
}
func (h *fakeHost) Selection() (string, error) { return h.selection, h.record("selection") }
func (h *fakeHost) SetSelection(text string) error {
	h.selection = text
	return h.record("setselection")
}
func (h *fakeHost) Find(flags, text string) (int, error) {
	return strings.Index(h.text, text), h.record("find " + text)
}
func (h *fakeHost) Replace(flags, find, replace string) (int, error) {
	n := strings.Count(h.text, find)
	h.text = strings.ReplaceAll(h.text, find, replace)
	return n, h.record("replace " + find)
}
func (h *fakeHost) ClipboardText() (string, error) { return h.clipboard, nil }
func (h *fakeHost) SetClipboardText(text string) error {
	h.clipboard = text
	return h.record("clip")
}
func (h *fakeHost) SendMessage(target, msg, wparam, lparam string) (MessageResult, error) {
	return MessageResult{Result: "42", WParam: wparam, LParam: lparam}, h.record("msg " + target + " " + msg)
}
func (h *fakeHost) MenuCommand(path string) error    { return h.record("menu " + path) }
func (h *fakeHost) RunExternal(command string) error { return h.record("run " + command) }
func (h *fakeHost) SetFocus(target string) error     { return h.record("focus " + target) }
func (h *fakeHost) Prompt(message, initial string) (string, error) {
	if h.answer == "" {
		return initial, h.record("prompt " + message)
	}
	return h.answer, h.record("prompt " + message)
}
func (h *fakeHost) Macro(name string) (string, bool) {
	v, ok := h.macros[name]
	return v, ok
}

// fakeProcess emits its output lines and exits, or blocks until killed
// when block is set
type fakeProcess struct {
	pid    int
	out    chan string
	done   chan struct{}
	code   int
	once   sync.Once
	mu     sync.Mutex
	input  []string
	killed bool
	// exitOn makes the process exit when this input line arrives
	exitOn string
}

func newFakeProcess(pid int, lines []string, code int, block bool) *fakeProcess {
	p := &fakeProcess{pid: pid, out: make(chan string, len(lines)), done: make(chan struct{}), code: code}
	for _, l := range lines {
		p.out <- l
	}
	if !block {
		p.exit(code)
	}
	return p
}

func (p *fakeProcess) exit(code int) {
	p.once.Do(func() {
		p.mu.Lock()
		p.code = code
		p.mu.Unlock()
		close(p.out)
		close(p.done)
	})
}

func (p *fakeProcess) PID() int              { return p.pid }
func (p *fakeProcess) Output() <-chan string { return p.out }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) Signal(name string) error {
	if name == "ctrlc" {
		p.exit(130)
	}
	return nil
}

func (p *fakeProcess) WriteInput(line string) error {
	p.mu.Lock()
	p.input = append(p.input, line)
	exit := p.exitOn != "" && line == p.exitOn
	p.mu.Unlock()
	if exit {
		p.exit(0)
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit(-1)
	return nil
}

func (p *fakeProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

func (p *fakeProcess) Input() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.input...)
}

func (p *fakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// fakeStarter hands out processes built by next
type fakeStarter struct {
	mu      sync.Mutex
	started []ProcessSpec
	next    func(spec ProcessSpec) (*fakeProcess, error)
	last    *fakeProcess
}

func (s *fakeStarter) Start(ctx context.Context, spec ProcessSpec) (ChildProcess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, spec)
	p, err := s.next(spec)
	if err != nil {
		return nil, err
	}
	s.last = p
	return p, nil
}

func (s *fakeStarter) Last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// mapScripts is an in-memory script library
type mapScripts map[string]string

func (m mapScripts) Script(ctx context.Context, name string) ([]string, error) {
	text, ok := m[strings.ToLower(name)]
	if !ok {
		return nil, mdwerror.New("script not found: " + name).WithCode(mdwerror.CodeNotFound)
	}
	return SplitScript(text), nil
}

// recordingHistory collects run records
type recordingHistory struct {
	mu   sync.Mutex
	runs []RunRecord
}

func (r *recordingHistory) Record(ctx context.Context, run RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *recordingHistory) Runs() []RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunRecord(nil), r.runs...)
}

func testOptions(script string, con *fakeConsole) Options {
	return Options{
		Name:    "test",
		Lines:   SplitScript(script),
		Console: con,
		Logger:  mdwlog.NewNop(),
		Globals: NewVarStore(),
		Dir:     ".",
	}
}

// runScript runs script to completion and returns the engine and console
func runScript(t *testing.T, script string, configure ...func(*Options)) (*Engine, *fakeConsole, error) {
	t.Helper()
	con := &fakeConsole{}
	opts := testOptions(script, con)
	for _, c := range configure {
		c(&opts)
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	runErr := e.Run(context.Background())
	return e, con, runErr
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
