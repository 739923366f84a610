package engine

import (
	"strconv"
	"strings"
	"time"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
)

// doRunProcess runs a line that is not a registered command as a child
// process and relays its output until it exits. The command succeeds once
// the process was started; its exit code is left in $(EXITCODE).
func doRunProcess(e *Engine, params string) Result {
	cmdLine := strings.TrimSpace(params)
	if e.processes == nil {
		e.printError("cannot run \"" + cmdLine + "\": no process support")
		return ResultFailed
	}
	if e.IsChildProcessRunning() {
		err := mdwerror.New("a child process is already running").
			WithCode(mdwerror.CodeProcessRunning).
			WithOperation("engine.runProcess").
			WithDetail("command", cmdLine)
		e.printError(err.Message())
		e.logger.LogError(err)
		return ResultFailed
	}

	proc, err := e.processes.Start(e.runCtx, ProcessSpec{CommandLine: cmdLine, Dir: e.dir})
	if err != nil {
		werr := mdwerror.Wrap(err, "cannot start process").
			WithCode(mdwerror.CodeProcessFailed).
			WithOperation("engine.runProcess").
			WithDetail("command", cmdLine)
		e.printError(werr.Error())
		e.logger.LogError(werr)
		e.setMacro(MacroExitCode, "-1")
		return ResultFailed
	}

	e.setChildProcess(proc)
	defer e.setChildProcess(nil)

	pid := proc.PID()
	e.setMacro(MacroPID, strconv.Itoa(pid))
	e.message("Process started (PID=" + strconv.Itoa(pid) + ") >>>")
	e.logger.Debug("child process started", mdwlog.Fields{"pid": pid, "command": cmdLine})

	var (
		lines   []string
		output  = proc.Output()
		done    = proc.Done()
		abort   = e.abortSignal()
		stopped bool
	)
	for output != nil || done != nil {
		select {
		case line, ok := <-output:
			if !ok {
				output = nil
				continue
			}
			lines = append(lines, line)
			e.console.Print(line)
		case <-done:
			done = nil
		case <-abort:
			abort = nil
			stopped = true
			go e.stopChildProcess(proc)
		}
	}

	code := proc.ExitCode()
	e.setMacro(MacroExitCode, strconv.Itoa(code))
	e.setMacro(MacroOutput, strings.Join(lines, "\n"))
	if len(lines) > 0 {
		e.setMacro(MacroOutput1, lines[0])
		e.setMacro(MacroOutputL, lines[len(lines)-1])
	} else {
		e.setMacro(MacroOutput1, "")
		e.setMacro(MacroOutputL, "")
	}

	if stopped {
		e.message("<<< Process has been terminated.")
	} else {
		e.message("<<< Process finished. (Exit code " + strconv.Itoa(code) + ")")
	}
	e.logger.Debug("child process exited", mdwlog.Fields{"pid": pid, "exit_code": code, "terminated": stopped})
	return ResultSucceeded
}

// stopChildProcess sends the configured exit command, gives the process
// KillTimeout to leave and kills it otherwise
func (e *Engine) stopChildProcess(proc ChildProcess) {
	if cmd := e.opts.ExitCommand; cmd != "" {
		e.triedExitCmd.Store(true)
		if err := proc.WriteInput(cmd); err == nil {
			timer := time.NewTimer(e.opts.KillTimeout)
			defer timer.Stop()
			select {
			case <-proc.Done():
				return
			case <-timer.C:
			}
		}
	}
	if err := proc.Kill(); err != nil {
		e.logger.Debug("kill failed", mdwlog.Fields{"pid": proc.PID(), "error": err.Error()})
	}
}

func (e *Engine) childProcess() ChildProcess {
	e.procMu.Lock()
	defer e.procMu.Unlock()
	return e.proc
}

func (e *Engine) setChildProcess(p ChildProcess) {
	e.procMu.Lock()
	e.proc = p
	e.procMu.Unlock()
}

// IsChildProcessRunning reports whether a supervised process is alive
func (e *Engine) IsChildProcessRunning() bool {
	proc := e.childProcess()
	if proc == nil {
		return false
	}
	select {
	case <-proc.Done():
		return false
	default:
		return true
	}
}

// killChildProcess kills the supervised process without the exit command
func (e *Engine) killChildProcess() bool {
	proc := e.childProcess()
	if proc == nil {
		return false
	}
	if err := proc.Kill(); err != nil {
		e.logger.Debug("kill failed", mdwlog.Fields{"pid": proc.PID(), "error": err.Error()})
		return false
	}
	e.logger.Audit("child process killed", mdwlog.Fields{"pid": proc.PID()})
	return true
}

// doProcSignal sends one or more signals to the child process: ctrlc,
// ctrlbreak, wm_close or kill
func doProcSignal(e *Engine, params string) Result {
	names := strings.Fields(params)
	if len(names) == 0 {
		e.printError("PROC_SIGNAL: signal expected")
		return ResultInvalidParam
	}
	proc := e.childProcess()
	if proc == nil {
		e.printError("PROC_SIGNAL: no child process is running")
		return ResultFailed
	}

	for _, name := range names {
		var err error
		switch strings.ToLower(name) {
		case "kill":
			err = proc.Kill()
		case "ctrlc", "ctrlbreak", "wm_close":
			err = proc.Signal(strings.ToLower(name))
		default:
			e.printError("PROC_SIGNAL: unknown signal " + name)
			return ResultInvalidParam
		}
		if err != nil {
			e.printError("PROC_SIGNAL: " + err.Error())
			return ResultFailed
		}
	}
	return ResultSucceeded
}

// doSleep waits for the given milliseconds, printing the optional text
// first. An abort ends the wait early.
func doSleep(e *Engine, params string) Result {
	first, text := splitFirstToken(params)
	ms, err := strconv.Atoi(first)
	if err != nil || ms < 0 {
		e.printError("SLEEP: milliseconds expected")
		return ResultInvalidParam
	}
	if text = unquote(text); text != "" {
		e.console.Print(text)
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-e.abortSignal():
	}
	return ResultSucceeded
}
