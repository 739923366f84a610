package engine

import (
	"context"
	"time"
)

// Host is the application the engine runs scripts for. The engine treats
// every call as a black box that succeeds or fails.
type Host interface {
	OpenDocument(path string) error
	CloseDocument(path string) error
	SaveDocument(path string) error
	SaveDocumentAs(path string) error
	SaveAllDocuments() error
	SwitchDocument(path string) error

	CurrentText() (string, error)
	SetCurrentText(text string) error
	Selection() (string, error)
	SetSelection(text string) error
	// Find returns the position of the next match or -1
	Find(flags, text string) (int, error)
	// Replace returns the number of replacements
	Replace(flags, find, replace string) (int, error)

	ClipboardText() (string, error)
	SetClipboardText(text string) error

	SendMessage(target, msg, wparam, lparam string) (MessageResult, error)
	MenuCommand(path string) error
	RunExternal(command string) error
	SetFocus(target string) error
	Prompt(message, initial string) (string, error)

	// Macro resolves editor related macros such as FULL_CURRENT_PATH
	Macro(name string) (string, bool)
}

// MessageResult is bound to $(MSG_RESULT), $(MSG_WPARAM) and $(MSG_LPARAM)
type MessageResult struct {
	Result string
	WParam string
	LParam string
}

// Console receives script output
type Console interface {
	Print(line string)
	PrintError(line string)
	Clear()
	SetColour(spec string) error
	SetFilter(spec string) error
	LoadFrom(path string) error
	SaveTo(path string, appendMode bool) error
	SetVisible(visible bool)
	Visible() bool
}

// ProcessStarter starts supervised child processes
type ProcessStarter interface {
	Start(ctx context.Context, spec ProcessSpec) (ChildProcess, error)
}

// ProcessSpec describes a child process to start
type ProcessSpec struct {
	CommandLine string
	Dir         string
	Env         []string
}

// ChildProcess is a running child OS process
type ChildProcess interface {
	PID() int
	// Output delivers stdout and stderr lines; it is closed when both end
	Output() <-chan string
	WriteInput(line string) error
	Signal(name string) error
	Kill() error
	// Done is closed once the process has exited
	Done() <-chan struct{}
	ExitCode() int
}

// ScriptSource resolves NPP_EXEC script names to their lines
type ScriptSource interface {
	Script(ctx context.Context, name string) ([]string, error)
}

// RunRecord is the history entry written for every finished engine
type RunRecord struct {
	ID        string
	ParentID  string
	Script    string
	Flags     RunFlags
	Started   time.Time
	Finished  time.Time
	Status    Status
	ErrorCode string
	ExecCount int
	GotoCount int
}

// RunRecorder stores run history
type RunRecorder interface {
	Record(ctx context.Context, run RunRecord) error
}
