package engine

import (
	"context"
	"sync"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
)

// Runner starts engines that share one tree, one global variable store and
// one set of collaborators. It owns the NPE_QUEUE queue.
type Runner struct {
	base   Options
	logger *mdwlog.Logger

	mu    sync.Mutex
	queue []string
	wg    sync.WaitGroup
}

// NewRunner creates a runner. base supplies limits and collaborators for
// every engine; its Name, Lines, Args and Flags are ignored.
func NewRunner(base Options) *Runner {
	if base.Logger == nil {
		base.Logger = mdwlog.GetDefault()
	}
	if base.Globals == nil {
		base.Globals = NewVarStore()
	}
	if base.Tree == nil {
		base.Tree = NewTree()
	}
	return &Runner{
		base:   base,
		logger: base.Logger.WithField("component", "script-runner"),
	}
}

// Tree returns the engine tree shared by the runner's engines
func (r *Runner) Tree() *Tree {
	return r.base.Tree
}

// Globals returns the process wide user variables
func (r *Runner) Globals() *VarStore {
	return r.base.Globals
}

// NewEngine creates an engine wired to the runner
func (r *Runner) NewEngine(name string, lines, args []string, flags RunFlags) (*Engine, error) {
	opts := r.base
	opts.Name = name
	opts.Lines = lines
	opts.Args = args
	opts.Flags = flags

	e, err := New(opts)
	if err != nil {
		return nil, err
	}
	e.runner = r
	return e, nil
}

// Run executes a script and then every command queued with NPE_QUEUE,
// each as a new top-level engine. It returns the first engine and its error.
func (r *Runner) Run(ctx context.Context, name string, lines, args []string, flags RunFlags) (*Engine, error) {
	e, err := r.NewEngine(name, lines, args, flags)
	if err != nil {
		return nil, err
	}
	runErr := e.Run(ctx)
	r.drainQueue(ctx)
	r.wg.Wait()
	return e, runErr
}

// Queue schedules a command line to run after the current engine
func (r *Runner) Queue(line string) {
	r.mu.Lock()
	r.queue = append(r.queue, line)
	r.mu.Unlock()
}

// Pending returns the number of queued command lines
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *Runner) drainQueue(ctx context.Context) {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 || ctx.Err() != nil {
			r.mu.Unlock()
			return
		}
		line := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		e, err := r.NewEngine("queued", []string{line}, nil, FlagExternal)
		if err != nil {
			r.logger.LogError(err)
			continue
		}
		if err := e.Run(ctx); err != nil {
			r.logger.Warn("queued command failed", mdwlog.Fields{"line": line, "error": err.Error()})
		}
	}
}

// RunCollateral starts line in a new child engine of parent. The child
// runs on its own goroutine; the parent's abort cascades to it.
func (r *Runner) RunCollateral(parent *Engine, line string) (*Engine, error) {
	if parent.Status().finished() {
		return nil, mdwerror.New("parent engine has finished").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("runner.RunCollateral")
	}

	flags := FlagCollateral | (parent.Flags() & FlagShareLocalVars)
	child, err := r.NewEngine(parent.Name()+":collateral", []string{line}, nil, flags)
	if err != nil {
		return nil, err
	}
	if flags.Has(FlagShareLocalVars) {
		child.rootVars = parent.rootVars
	}
	for alias, cmd := range parent.classifier.Aliases() {
		child.classifier.SetAlias(alias, cmd)
	}
	if err := parent.SetChildScriptEngine(child); err != nil {
		r.Tree().detach(child.id)
		return nil, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := child.Run(context.Background()); err != nil {
			r.logger.Debug("collateral script ended", mdwlog.Fields{"error": err.Error()})
		}
	}()
	return child, nil
}

// AbortAll aborts every running engine of the runner
func (r *Runner) AbortAll(reason string) {
	for _, e := range r.Tree().Engines() {
		e.Abort(reason)
	}
}

// BreakAll kills the child processes of every engine chain without
// waiting for an exit command. It returns the number of chains broken.
func (r *Runner) BreakAll() int {
	n := 0
	for _, e := range r.Tree().Engines() {
		if e.GetParentScriptEngine() != nil {
			continue
		}
		e.ChildProcessMustBreakAll()
		n++
	}
	return n
}
