package engine

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// VarStore holds the user variables shared by every engine of a process
type VarStore struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewVarStore creates an empty variable store
func NewVarStore() *VarStore {
	return &VarStore{vars: make(map[string]string)}
}

// Get returns the value of a variable; names are case-insensitive
func (s *VarStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[varKey(name)]
	return v, ok
}

// Set assigns a variable
func (s *VarStore) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[varKey(name)] = value
}

// Unset removes a variable and reports whether it existed
func (s *VarStore) Unset(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := varKey(name)
	_, ok := s.vars[key]
	delete(s.vars, key)
	return ok
}

// Names returns the sorted variable names
func (s *VarStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// varScope is the local variable map of a script context. Contexts run
// with FlagShareLocalVars hold the same *varScope as their caller, and a
// collateral engine may share it with its parent, hence the lock.
type varScope = VarStore

func newVarScope() *varScope {
	return NewVarStore()
}

func varKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Built-in macro names resolved by the engine or its host
const (
	MacroFullCurrentPath  = "FULL_CURRENT_PATH"
	MacroCurrentDirectory = "CURRENT_DIRECTORY"
	MacroFileName         = "FILE_NAME"
	MacroNamePart         = "NAME_PART"
	MacroExtPart          = "EXT_PART"
	MacroNppDirectory     = "NPP_DIRECTORY"
	MacroCurrentWord      = "CURRENT_WORD"
	MacroCurrentLine      = "CURRENT_LINE"
	MacroCurrentColumn    = "CURRENT_COLUMN"
	MacroCWD              = "CWD"
	MacroPID              = "PID"
	MacroExitCode         = "EXITCODE"
	MacroLastCmdResult    = "LAST_CMD_RESULT"
	MacroClipboardText    = "CLIPBOARD_TEXT"
	MacroMsgResult        = "MSG_RESULT"
	MacroMsgWParam        = "MSG_WPARAM"
	MacroMsgLParam        = "MSG_LPARAM"
	MacroInput            = "INPUT"
	MacroOutput           = "OUTPUT"
	MacroOutput1          = "OUTPUT1"
	MacroOutputL          = "OUTPUTL"
	MacroArgc             = "ARGC"
	MacroArgv             = "ARGV"
	MacroRArgv            = "RARGV"
)

const envPrefix = "SYS."

// expand substitutes every $(name) in s. Nested references such as
// $(ARGV[$(i)]) are resolved inside out. Unresolved names stay as written
// unless NPE_NOEMPTYVARS is on, then they become empty.
func (e *Engine) expand(s string) string {
	if !strings.Contains(s, "$(") {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); {
		if !strings.HasPrefix(s[i:], "$(") {
			sb.WriteByte(s[i])
			i++
			continue
		}
		end := matchParen(s, i+1)
		if end < 0 {
			sb.WriteString(s[i:])
			break
		}
		name := e.expand(s[i+2 : end])
		if v, ok := e.lookupVar(name); ok {
			sb.WriteString(v)
		} else if !e.noEmptyVars {
			sb.WriteString("$(" + name + ")")
		}
		i = end + 1
	}
	return sb.String()
}

// matchParen returns the index of the ')' closing the '(' at open
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// lookupVar resolves a variable: arguments, locals, globals, built-in
// macros, then environment variables written as SYS.<name>.
func (e *Engine) lookupVar(name string) (string, bool) {
	key := varKey(name)

	if v, ok := e.lookupArgs(key); ok {
		return v, true
	}
	if ctx := e.current(); ctx != nil {
		if v, ok := ctx.vars.Get(key); ok {
			return v, true
		}
	}
	if v, ok := e.globals.Get(key); ok {
		return v, true
	}
	if v, ok := e.lookupMacro(key); ok {
		return v, true
	}
	if strings.HasPrefix(key, envPrefix) {
		return os.LookupEnv(strings.TrimSpace(name)[len(envPrefix):])
	}
	return "", false
}

func (e *Engine) lookupArgs(key string) (string, bool) {
	ctx := e.current()
	if ctx == nil {
		return "", false
	}
	args := ctx.args

	switch {
	case key == MacroArgc:
		return strconv.Itoa(len(args)), true
	case key == MacroArgv:
		return joinArgs(args), true
	case key == MacroRArgv:
		rev := make([]string, len(args))
		for i, a := range args {
			rev[len(args)-1-i] = a
		}
		return joinArgs(rev), true
	case strings.HasPrefix(key, MacroArgv+"[") && strings.HasSuffix(key, "]"):
		n, err := strconv.Atoi(strings.TrimSpace(key[len(MacroArgv)+1 : len(key)-1]))
		if err != nil {
			return "", false
		}
		// ARGV[0] is the script name
		if n == 0 {
			return ctx.Name, true
		}
		if n < 0 || n > len(args) {
			return "", true
		}
		return args[n-1], true
	}
	return "", false
}

func (e *Engine) lookupMacro(key string) (string, bool) {
	switch key {
	case MacroCWD:
		return e.Dir(), true
	case MacroLastCmdResult:
		return e.lastResult.String(), true
	case MacroClipboardText:
		if e.host == nil {
			return "", true
		}
		text, err := e.host.ClipboardText()
		if err != nil {
			return "", true
		}
		return text, true
	}

	e.macroMu.RLock()
	v, ok := e.macros[key]
	e.macroMu.RUnlock()
	if ok {
		return v, true
	}

	if e.host != nil {
		return e.host.Macro(key)
	}
	return "", false
}

// setMacro stores an engine owned macro such as EXITCODE or MSG_RESULT
func (e *Engine) setMacro(name, value string) {
	e.macroMu.Lock()
	e.macros[varKey(name)] = value
	e.macroMu.Unlock()
}

// Macro returns an engine owned macro value
func (e *Engine) Macro(name string) string {
	e.macroMu.RLock()
	defer e.macroMu.RUnlock()
	return e.macros[varKey(name)]
}

func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
