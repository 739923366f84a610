// ============================================================================
// mExec - Embedded Script Engine
// ============================================================================
//
// Package:     engine
// Description: Script engine: command loop, guard counters, script
//              contexts, abort and done signalling
// Author:      Mike Stoffels
// Created:     2025-12-14
// License:     MIT
// ============================================================================

package engine

import (
	"container/list"
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
)

// Default guard ceilings
const (
	DefaultExecMaxCount = 100000
	DefaultGotoMaxCount = 10000
)

// Options configures an engine
type Options struct {
	Name  string
	Lines []string
	Args  []string
	Flags RunFlags

	ExecMaxCount int
	GotoMaxCount int
	StopOnError  bool
	// ContinueExecution is asked before every line; it replaces the
	// StopOnError rule when set.
	ContinueExecution func(e *Engine) bool

	CommentPrefix    string
	CollateralPrefix string
	NoEmptyVars      bool
	DebugLog         bool

	// Dir is the working directory for child processes
	Dir string
	// ExitCommand is written to a child process before it is killed
	ExitCommand string
	KillTimeout time.Duration

	Logger    *mdwlog.Logger
	Host      Host
	Console   Console
	Processes ProcessStarter
	Scripts   ScriptSource
	History   RunRecorder
	Globals   *VarStore
	Tree      *Tree
}

var defaultGlobals = NewVarStore()

type execState struct {
	execCounter  int
	execMaxCount int
	gotoCounter  int
	gotoMaxCount int

	cur  *list.Element
	next *list.Element

	// fatal is set by handlers and consumed by the loop after dispatch
	fatal *mdwerror.Error
}

// Engine runs one script. Its command loop runs on a single goroutine;
// Abort, WaitUntilDone and SendInput may be called from any goroutine.
type Engine struct {
	id     uuid.UUID
	opts   Options
	logger *mdwlog.Logger

	classifier *Classifier
	lines      *list.List
	contexts   contextStack
	state      execState
	rootVars   *varScope

	globals   *VarStore
	host      Host
	console   Console
	processes ProcessStarter
	scripts   ScriptSource
	history   RunRecorder
	tree      *Tree
	runner    *Runner
	runCtx    context.Context

	noEmptyVars     bool
	debugLog        bool
	consoleMessages bool
	dir             string

	macroMu sync.RWMutex
	macros  map[string]string

	lastType   CommandType
	lastName   string
	lastParams string
	lastLine   string
	lastResult Result

	procMu       sync.Mutex
	proc         ChildProcess
	triedExitCmd atomic.Bool

	sigMu    sync.Mutex
	abortCh  chan struct{}
	aborted  bool
	abortMsg string
	doneCh   chan struct{}
	status   Status
	err      error
	started  time.Time
	finished time.Time
}

// New creates an engine for opts.Lines. The lines are copied.
func New(opts Options) (*Engine, error) {
	if opts.ExecMaxCount < 0 || opts.GotoMaxCount < 0 {
		return nil, mdwerror.New("guard ceilings must not be negative").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("engine.New").
			WithDetail("exec_max_count", opts.ExecMaxCount).
			WithDetail("goto_max_count", opts.GotoMaxCount)
	}

	if opts.ExecMaxCount == 0 {
		opts.ExecMaxCount = DefaultExecMaxCount
	}
	if opts.GotoMaxCount == 0 {
		opts.GotoMaxCount = DefaultGotoMaxCount
	}
	if opts.CommentPrefix == "" {
		opts.CommentPrefix = "//"
	}
	if opts.CollateralPrefix == "" {
		opts.CollateralPrefix = "nppexec:"
	}
	if opts.KillTimeout == 0 {
		opts.KillTimeout = 2 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "script"
	}
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Console == nil {
		opts.Console = discardConsole{}
	}
	if opts.Globals == nil {
		opts.Globals = defaultGlobals
	}
	if opts.Tree == nil {
		opts.Tree = NewTree()
	}
	if opts.Dir == "" {
		opts.Dir, _ = os.Getwd()
	}

	id := uuid.New()
	e := &Engine{
		id:              id,
		opts:            opts,
		logger:          opts.Logger.WithField("component", "script-engine").WithEngine(id.String()),
		classifier:      NewClassifier(opts.CommentPrefix, opts.CollateralPrefix),
		lines:           list.New(),
		rootVars:        newVarScope(),
		globals:         opts.Globals,
		host:            opts.Host,
		console:         opts.Console,
		processes:       opts.Processes,
		scripts:         opts.Scripts,
		history:         opts.History,
		tree:            opts.Tree,
		runCtx:          context.Background(),
		noEmptyVars:     opts.NoEmptyVars,
		debugLog:        opts.DebugLog,
		consoleMessages: true,
		dir:             opts.Dir,
		macros:          make(map[string]string),
		lastResult:      ResultSucceeded,
		abortCh:         make(chan struct{}),
		doneCh:          make(chan struct{}),
		status:          StatusPending,
	}
	e.state.execMaxCount = opts.ExecMaxCount
	e.state.gotoMaxCount = opts.GotoMaxCount

	for i, text := range opts.Lines {
		e.lines.PushBack(&scriptLine{text: text, number: i + 1, script: opts.Name})
	}

	e.tree.add(e)
	return e, nil
}

// ID returns the engine identifier
func (e *Engine) ID() uuid.UUID { return e.id }

// Name returns the name of the script the engine was started with
func (e *Engine) Name() string { return e.opts.Name }

// Flags returns the run flags
func (e *Engine) Flags() RunFlags { return e.opts.Flags }

// Logger returns the engine scoped logger
func (e *Engine) Logger() *mdwlog.Logger { return e.logger }

// Dir returns the working directory used for child processes
func (e *Engine) Dir() string { return e.dir }

// ExecCount returns the number of dispatched commands. Read it after Done.
func (e *Engine) ExecCount() int { return e.state.execCounter }

// GotoCount returns the number of jumps taken. Read it after Done.
func (e *Engine) GotoCount() int { return e.state.gotoCounter }

// LastCommand returns the type and parameters of the last dispatched command
func (e *Engine) LastCommand() (CommandType, string) { return e.lastType, e.lastParams }

// LastResult returns the result of the last dispatched command
func (e *Engine) LastResult() Result { return e.lastResult }

// TriedExitCmd reports whether the exit command was sent to the child
// process before it had to be killed
func (e *Engine) TriedExitCmd() bool { return e.triedExitCmd.Load() }

// Current returns the current script context. Only valid on the engine's
// own goroutine, i.e. inside command handlers.
func (e *Engine) Current() *ScriptContext { return e.current() }

func (e *Engine) current() *ScriptContext { return e.contexts.top() }

// ContextDepth returns the number of active script contexts
func (e *Engine) ContextDepth() int { return len(e.contexts) }

// FindContextByName returns the innermost active context of a script
func (e *Engine) FindContextByName(name string) *ScriptContext {
	return e.contexts.findByName(name)
}

// Status returns the lifecycle state
func (e *Engine) Status() Status {
	e.sigMu.Lock()
	defer e.sigMu.Unlock()
	return e.status
}

// Err returns the error the engine finished with
func (e *Engine) Err() error {
	e.sigMu.Lock()
	defer e.sigMu.Unlock()
	return e.err
}

// Start runs the engine on a new goroutine
func (e *Engine) Start(ctx context.Context) {
	go func() {
		_ = e.Run(ctx)
	}()
}

// Run executes the script on the calling goroutine and returns when the
// engine is done. Cancelling ctx aborts the engine.
func (e *Engine) Run(ctx context.Context) error {
	e.sigMu.Lock()
	if e.status != StatusPending {
		e.sigMu.Unlock()
		return mdwerror.New("engine already started").
			WithCode(mdwerror.CodeInternal).
			WithOperation("engine.Run")
	}
	e.status = StatusRunning
	e.started = time.Now()
	e.sigMu.Unlock()
	e.runCtx = ctx

	stop := context.AfterFunc(ctx, func() {
		e.Abort("context cancelled")
	})
	defer stop()

	e.logger.Info("script started", mdwlog.Fields{
		"script": e.opts.Name,
		"lines":  e.lines.Len(),
		"flags":  e.opts.Flags.String(),
	})
	timer := e.logger.StartTimer("script.run").WithField("script", e.opts.Name)

	err := e.execute()
	e.finish(context.WithoutCancel(ctx), err)

	if err != nil {
		timer.StopWithError(err)
	} else {
		timer.Stop()
	}
	return err
}

func (e *Engine) execute() error {
	ctx := &ScriptContext{
		Name:  e.opts.Name,
		begin: e.lines.Front(),
		vars:  e.rootVars,
		args:  e.opts.Args,
	}
	e.enterContext(ctx)
	e.state.next = ctx.begin

	for {
		if e.IsAborting() {
			return e.abortError()
		}
		if !e.continueExecution() {
			return mdwerror.New("script stopped after a failed command").
				WithCode(mdwerror.CodeScriptCommandFailed).
				WithOperation("engine.run").
				WithDetail("command", e.lastType.String()).
				WithDetail("params", e.lastParams)
		}

		top := e.current()
		if e.state.next == top.end {
			if err := e.leaveContext(false); err != nil || len(e.contexts) == 0 {
				return err
			}
			continue
		}

		el := e.state.next
		e.state.cur = el
		e.state.next = el.Next()
		e.step(el)

		if fatal := e.state.fatal; fatal != nil {
			e.state.fatal = nil
			if err := e.onFatal(fatal); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) continueExecution() bool {
	if e.opts.ContinueExecution != nil {
		return e.opts.ContinueExecution(e)
	}
	return !e.opts.StopOnError || e.lastResult == ResultSucceeded
}

// step classifies one line, applies IF gating and dispatches it
func (e *Engine) step(el *list.Element) {
	line := el.Value.(*scriptLine)
	cls := e.classifier.Classify(line.text)
	if cls.Type == CmdCommentOrEmpty {
		return
	}

	ctx := e.current()
	state := ctx.ifs.Top()

	if state.Skipping() && cls.Type == CmdIf && cls.Prefix != PrefixCollateralForced {
		// keep nesting balanced; the single line IF...GOTO form has no ENDIF
		if _, _, single := splitIfGoto(cls.Params); !single {
			ctx.ifs.enterSkippedIf()
		}
		return
	}
	if state == IfWantSilentEndif && cls.Prefix != PrefixCollateralForced {
		// levels opened while skipping are closed without dispatch
		switch cls.Type {
		case CmdEndIf:
			ctx.ifs.pop()
			return
		case CmdElse:
			return
		}
	}
	if IsSkippingCommand(cls.SkipType(), state) {
		if e.debugLog {
			e.logger.Trace("line skipped", mdwlog.Fields{"line": line.number, "if_state": state.String()})
		}
		return
	}

	params := cls.Params
	if cls.Type != CmdLabel && cls.Type != CmdNpeCmdAlias {
		params = e.expand(params)
	}

	e.state.execCounter++
	e.lastType, e.lastName, e.lastParams, e.lastLine = cls.Type, cls.Name, params, line.text

	if e.debugLog {
		e.logger.Debug("dispatch", mdwlog.Fields{
			"script":   line.script,
			"line":     line.number,
			"type":     cls.Type.String(),
			"params":   params,
			"if_state": state.String(),
			"exec":     e.state.execCounter,
		})
	}

	if e.state.execCounter > e.state.execMaxCount {
		e.state.fatal = guardOverflow("exec", e.state.execMaxCount)
		return
	}

	result := Commands().DispatchFor(cls.Type)(e, params)
	e.lastResult = result

	switch result {
	case ResultInvalidParam:
		e.logger.Info("invalid parameter", mdwlog.Fields{"command": cls.Type.String(), "params": params, "line": line.number})
	case ResultFailed:
		e.logger.Debug("command failed", mdwlog.Fields{"command": cls.Type.String(), "params": params, "line": line.number})
	}
}

// onFatal handles a fatal error. Guard overflows and errors in the
// outermost context end the engine; other errors end only the nested
// context, and its caller sees a failed NPP_EXEC.
func (e *Engine) onFatal(err *mdwerror.Error) error {
	ctx := e.current()
	line := 0
	if e.state.cur != nil {
		line = e.state.cur.Value.(*scriptLine).number
	}
	err.WithDetail("script", ctx.Name).WithDetail("line", line)

	e.printError(err.Message())
	e.logger.LogError(err)

	if err.Code() == mdwerror.CodeScriptGuardOverflow || len(e.contexts) <= 1 {
		return err
	}

	e.state.next = ctx.end
	if perr := e.leaveContext(true); perr != nil {
		return perr
	}
	e.lastResult = ResultFailed
	return nil
}

func (e *Engine) enterContext(ctx *ScriptContext) {
	for _, dup := range ctx.scanLabels(e.classifier) {
		e.logger.Warn("duplicate label ignored", mdwlog.Fields{"script": ctx.Name, "label": dup})
	}
	e.contexts.push(ctx)
	if e.debugLog {
		e.logger.Debug("script context entered", mdwlog.Fields{
			"script":    ctx.Name,
			"subscript": ctx.IsSubscript(),
			"labels":    ctx.LabelNames(),
			"depth":     len(e.contexts),
		})
	}
}

// leaveContext pops the current context. Unless abandoned, open IF levels
// are reported as a structural error.
func (e *Engine) leaveContext(abandoned bool) error {
	ctx := e.contexts.pop()
	if ctx.inserted {
		removeRange(e.lines, ctx.begin, ctx.end)
	}
	e.state.next = ctx.end

	if abandoned {
		return nil
	}
	if n := ctx.ifs.unterminated(); n > 0 {
		err := mdwerror.New("IF without ENDIF").
			WithCode(mdwerror.CodeScriptStructure).
			WithOperation("engine.leaveContext").
			WithDetail("script", ctx.Name).
			WithDetail("open_ifs", n)
		e.printError(err.Message())
		e.logger.LogError(err)
		if len(e.contexts) == 0 {
			return err
		}
		e.lastResult = ResultFailed
	}
	return nil
}

// callScript runs lines as a nested context right after the current line
func (e *Engine) callScript(name string, lines, args []string) {
	if len(lines) == 0 {
		return
	}
	if e.contexts.findByName(name) != nil {
		e.logger.Debug("recursive script call", mdwlog.Fields{"script": name, "depth": len(e.contexts)})
	}

	caller := e.current()
	end := e.state.cur.Next()
	mark := e.state.cur
	var first *list.Element
	for i, text := range lines {
		mark = e.lines.InsertAfter(&scriptLine{text: text, number: i + 1, script: name}, mark)
		if first == nil {
			first = mark
		}
	}

	vars := newVarScope()
	if e.opts.Flags.Has(FlagShareLocalVars) {
		vars = caller.vars
	}
	e.enterContext(&ScriptContext{
		Name:      name,
		begin:     first,
		end:       end,
		vars:      vars,
		args:      args,
		subscript: true,
		inserted:  true,
	})
	e.state.next = first
}

// gotoLabel jumps to a label of the current context
func (e *Engine) gotoLabel(label string) Result {
	ctx := e.current()
	target, ok := ctx.Label(label)
	if !ok {
		e.state.fatal = mdwerror.New("label not found: "+strings.TrimSpace(label)).
			WithCode(mdwerror.CodeScriptLabelNotFound).
			WithOperation("engine.goto").
			WithDetail("label", strings.TrimSpace(label))
		return ResultFailed
	}

	e.state.gotoCounter++
	if e.state.gotoCounter > e.state.gotoMaxCount {
		e.state.fatal = guardOverflow("goto", e.state.gotoMaxCount)
		return ResultFailed
	}

	e.state.next = target
	ctx.ifs.afterGoto()
	return ResultSucceeded
}

func guardOverflow(counter string, max int) *mdwerror.Error {
	return mdwerror.New(counter+" counter exceeded its maximum").
		WithCode(mdwerror.CodeScriptGuardOverflow).
		WithOperation("engine.guard").
		WithDetail("counter", counter).
		WithDetail("max", max)
}

// Abort requests cooperative termination. The loop stops before the next
// line, a running child process is stopped and the child engine is
// aborted as well.
func (e *Engine) Abort(reason string) {
	e.sigMu.Lock()
	if e.aborted || e.status.finished() {
		e.sigMu.Unlock()
		return
	}
	e.aborted = true
	e.abortMsg = reason
	close(e.abortCh)
	e.sigMu.Unlock()

	e.logger.Audit("abort requested", mdwlog.Fields{"reason": reason})

	if child := e.GetChildScriptEngine(); child != nil {
		child.Abort("parent aborted: " + reason)
	}
}

// UndoAbort withdraws a pending abort request that has not yet ended the
// engine
func (e *Engine) UndoAbort(reason string) bool {
	e.sigMu.Lock()
	defer e.sigMu.Unlock()
	if !e.aborted || e.status.finished() {
		return false
	}
	e.aborted = false
	e.abortMsg = ""
	e.abortCh = make(chan struct{})
	e.logger.Audit("abort withdrawn", mdwlog.Fields{"reason": reason})
	return true
}

// IsAborting reports whether an abort was requested
func (e *Engine) IsAborting() bool {
	e.sigMu.Lock()
	defer e.sigMu.Unlock()
	return e.aborted
}

// abortSignal returns the channel closed by the current abort request
func (e *Engine) abortSignal() <-chan struct{} {
	e.sigMu.Lock()
	defer e.sigMu.Unlock()
	return e.abortCh
}

func (e *Engine) abortError() *mdwerror.Error {
	e.sigMu.Lock()
	reason := e.abortMsg
	e.sigMu.Unlock()
	return mdwerror.New("script aborted").
		WithCode(mdwerror.CodeScriptAborted).
		WithOperation("engine.run").
		WithDetail("reason", reason)
}

// Done is closed when the engine has finished
func (e *Engine) Done() <-chan struct{} {
	return e.doneCh
}

// WaitUntilDone waits for the engine to finish. A timeout of zero polls.
func (e *Engine) WaitUntilDone(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-e.doneCh:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-e.doneCh:
		return true
	case <-timer.C:
		return false
	}
}

func (s Status) finished() bool {
	return s == StatusDone || s == StatusFailed || s == StatusAborted
}

func (e *Engine) finish(ctx context.Context, err error) {
	status := StatusDone
	switch {
	case mdwerror.HasCode(err, mdwerror.CodeScriptAborted):
		status = StatusAborted
	case err != nil:
		status = StatusFailed
	}

	e.sigMu.Lock()
	e.status = status
	e.err = err
	e.finished = time.Now()
	e.sigMu.Unlock()

	fields := mdwlog.Fields{
		"script": e.opts.Name,
		"status": string(status),
		"exec":   e.state.execCounter,
		"goto":   e.state.gotoCounter,
	}
	if status == StatusDone {
		e.logger.Info("script finished", fields)
	} else {
		e.logger.Warn("script ended", fields)
	}

	e.record(ctx)
	e.tree.detach(e.id)
	close(e.doneCh)
}

func (e *Engine) record(ctx context.Context) {
	if e.history == nil {
		return
	}

	run := RunRecord{
		ID:        e.id.String(),
		Script:    e.opts.Name,
		Flags:     e.opts.Flags,
		Started:   e.started,
		Finished:  e.finished,
		Status:    e.status,
		ExecCount: e.state.execCounter,
		GotoCount: e.state.gotoCounter,
	}
	if parent := e.GetParentScriptEngine(); parent != nil {
		run.ParentID = parent.ID().String()
	}
	if e.err != nil {
		run.ErrorCode = mdwerror.GetCode(e.err).String()
	}

	if err := e.history.Record(ctx, run); err != nil {
		e.logger.LogError(err)
	}
}

// SendInput handles a console line typed while the script runs. Lines with
// the collateral prefix start a collateral child engine; other lines go to
// the child process.
func (e *Engine) SendInput(line string) error {
	if _, prefix := e.classifier.StripPrefix(line); prefix != PrefixNone {
		if e.runner == nil {
			return mdwerror.New("collateral scripts need a runner").
				WithCode(mdwerror.CodeInvalidInput).
				WithOperation("engine.SendInput")
		}
		_, err := e.runner.RunCollateral(e, line)
		return err
	}

	proc := e.childProcess()
	if proc == nil {
		return mdwerror.New("no child process is running").
			WithCode(mdwerror.CodeNotFound).
			WithOperation("engine.SendInput")
	}
	return proc.WriteInput(line)
}

func (e *Engine) printError(msg string) {
	e.console.PrintError(msg)
}

// message prints an engine message unless NPE_CONSOLE m- turned them off
func (e *Engine) message(msg string) {
	if e.consoleMessages {
		e.console.Print(msg)
	}
}

// discardConsole is used when no console is configured
type discardConsole struct{}

func (discardConsole) Print(string)              {}
func (discardConsole) PrintError(string)         {}
func (discardConsole) Clear()                    {}
func (discardConsole) SetColour(string) error    { return nil }
func (discardConsole) SetFilter(string) error    { return nil }
func (discardConsole) LoadFrom(string) error     { return nil }
func (discardConsole) SaveTo(string, bool) error { return nil }
func (discardConsole) SetVisible(bool)           {}
func (discardConsole) Visible() bool             { return false }
