// ============================================================================
// mExec - Embedded Script Engine
// ============================================================================
//
// Package:     process
// Description: Child process supervision on os/exec for script lines that
//              are not registered commands
// Author:      Mike Stoffels
// Created:     2025-12-15
// License:     MIT
// ============================================================================

package process

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
	"github.com/msto63/mExec/internal/engine"
)

// outputBuffer is the capacity of the merged output channel
const outputBuffer = 64

// Config configures a Starter
type Config struct {
	// Shell runs command lines through a shell, e.g. "sh -c". Empty starts
	// the first word of the command line directly.
	Shell string
	// WaitDelay bounds how long output pipes are drained after exit
	WaitDelay time.Duration
	Env       []string
	Logger    *mdwlog.Logger
}

// Starter starts child processes with os/exec
type Starter struct {
	config Config
	logger *mdwlog.Logger
}

var _ engine.ProcessStarter = (*Starter)(nil)

// NewStarter creates a Starter
func NewStarter(cfg Config) *Starter {
	if cfg.Logger == nil {
		cfg.Logger = mdwlog.GetDefault()
	}
	if cfg.WaitDelay == 0 {
		cfg.WaitDelay = 500 * time.Millisecond
	}
	return &Starter{config: cfg, logger: cfg.Logger.WithName("process")}
}

// Start launches the command line of spec. The process is killed when ctx
// is cancelled.
func (s *Starter) Start(ctx context.Context, spec engine.ProcessSpec) (engine.ChildProcess, error) {
	args := s.argv(spec.CommandLine)
	if len(args) == 0 {
		return nil, mdwerror.New("empty command line").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("process.Start")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = spec.Dir
	cmd.WaitDelay = s.config.WaitDelay
	if len(s.config.Env) > 0 || len(spec.Env) > 0 {
		env := append(os.Environ(), s.config.Env...)
		cmd.Env = append(env, spec.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, startError(err, spec.CommandLine)
	}
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return nil, startError(err, spec.CommandLine)
	}

	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		output: make(chan string, outputBuffer),
		done:   make(chan struct{}),
	}
	p.exitCode.Store(-1)

	var readers sync.WaitGroup
	readers.Add(2)
	go p.relay(stdoutR, &readers)
	go p.relay(stderrR, &readers)
	go func() {
		readers.Wait()
		close(p.output)
	}()

	go func() {
		err := cmd.Wait()
		stdoutW.Close()
		stderrW.Close()
		if cmd.ProcessState != nil {
			p.exitCode.Store(int64(cmd.ProcessState.ExitCode()))
		}
		if err != nil {
			s.logger.Debug("process ended", mdwlog.Fields{"pid": p.PID(), "error": err.Error()})
		}
		close(p.done)
	}()

	s.logger.Debug("process started", mdwlog.Fields{"pid": p.PID(), "args": args})
	return p, nil
}

func (s *Starter) argv(cmdLine string) []string {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		return nil
	}
	if s.config.Shell != "" {
		return append(strings.Fields(s.config.Shell), cmdLine)
	}
	return SplitCommandLine(cmdLine)
}

func startError(err error, cmdLine string) error {
	return mdwerror.Wrap(err, "failed to start process").
		WithCode(mdwerror.CodeProcessFailed).
		WithOperation("process.Start").
		WithDetail("command", cmdLine)
}

// SplitCommandLine splits on spaces outside double quotes and removes the
// quotes.
func SplitCommandLine(s string) []string {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case (r == ' ' || r == '\t') && !quoted:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, cur.String())
	}
	return args
}

// Process is a running child started by a Starter
type Process struct {
	cmd      *exec.Cmd
	stdinMu  sync.Mutex
	stdin    io.WriteCloser
	output   chan string
	done     chan struct{}
	exitCode atomic.Int64
}

var _ engine.ChildProcess = (*Process)(nil)

func (p *Process) relay(r io.ReadCloser, wg *sync.WaitGroup) {
	defer wg.Done()
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.output <- strings.TrimRight(scanner.Text(), "\r")
	}
}

// PID returns the operating system process id
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Output delivers merged stdout and stderr lines
func (p *Process) Output() <-chan string {
	return p.output
}

// WriteInput sends a line to the process's stdin
func (p *Process) WriteInput(line string) error {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()

	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		return mdwerror.Wrap(err, "failed to write process input").
			WithCode(mdwerror.CodeProcessFailed).
			WithOperation("process.WriteInput").
			WithDetail("pid", p.PID())
	}
	return nil
}

// Signal delivers a named signal: kill, ctrlc, ctrlbreak or wm_close
func (p *Process) Signal(name string) error {
	var sig os.Signal
	switch strings.ToLower(name) {
	case "kill":
		return p.Kill()
	case "ctrlc":
		sig = os.Interrupt
	case "ctrlbreak":
		sig = syscall.SIGQUIT
	case "wm_close":
		sig = syscall.SIGTERM
	default:
		return mdwerror.New("unknown signal: " + name).
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("process.Signal")
	}
	if err := p.cmd.Process.Signal(sig); err != nil {
		return mdwerror.Wrap(err, "failed to signal process").
			WithCode(mdwerror.CodeProcessFailed).
			WithOperation("process.Signal").
			WithDetail("pid", p.PID()).
			WithDetail("signal", name)
	}
	return nil
}

// Kill terminates the process immediately. Killing an exited process is
// not an error.
func (p *Process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return mdwerror.Wrap(err, "failed to kill process").
			WithCode(mdwerror.CodeProcessFailed).
			WithOperation("process.Kill").
			WithDetail("pid", p.PID())
	}
	return nil
}

// Done is closed once the process has exited
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode returns the exit code, or -1 while running or when the process
// was killed by a signal.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}
