package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
	"github.com/msto63/mExec/internal/console"
	"github.com/msto63/mExec/internal/engine"
	"github.com/msto63/mExec/internal/host"
	"github.com/msto63/mExec/internal/process"
	"github.com/msto63/mExec/internal/store"
	"github.com/msto63/mExec/pkg/core/config"
)

var (
	runStopOnError bool
	runExecMax     int
	runGotoMax     int
	runShareVars   bool
	runNoHistory   bool
)

var runCmd = &cobra.Command{
	Use:   "run <file|name> [args...]",
	Short: "Run a script",
	Long: `Runs a script file, or a script from the library when no file of
that name exists. Extra arguments are available as $(ARGV[n]).

While a child process runs, lines typed on stdin are sent to it. Lines
starting with the collateral prefix ("nppexec:") run as collateral scripts.

Examples:
  mexec run build.txt
  mexec run deploy staging --stop-on-error
  mexec run loop.txt --goto-max 50`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runStopOnError, "stop-on-error", false, "stop at the first failed command")
	runCmd.Flags().IntVar(&runExecMax, "exec-max", 0, "maximum number of executed lines (0: config)")
	runCmd.Flags().IntVar(&runGotoMax, "goto-max", 0, "maximum number of GOTO jumps (0: config)")
	runCmd.Flags().BoolVar(&runShareVars, "share-vars", false, "nested scripts share local variables")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record the run")
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("cannot load config", err)
		return err
	}
	applyRunFlags(cmd, cfg)
	logger := newLogger(cfg)
	logger.Debug("configuration loaded", mdwlog.Fields{"config": cfg.Summary()})

	scripts, err := store.OpenScripts(cfg.Store)
	if err != nil {
		printError("cannot open script library", err)
		return err
	}
	defer scripts.Close()

	var history store.HistoryStore
	if !runNoHistory {
		h, err := store.NewSQLiteHistoryStore(store.SQLiteConfig{Path: cfg.Store.HistoryPath})
		if err != nil {
			logger.WarnWithErr("run history disabled", err)
		} else {
			history = h
			defer h.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	name, lines, err := resolveScript(ctx, scripts, args[0])
	if err != nil {
		printError("cannot load script", err)
		return err
	}

	promptR, promptW := io.Pipe()
	defer promptW.Close()

	opts := engineOptions(cfg, logger)
	opts.Host = host.New(host.Config{
		SystemClipboard: true,
		Input:           promptR,
		Output:          os.Stderr,
		Logger:          logger,
	})
	opts.Console = console.New(console.Config{
		Output: consoleOutput(cfg),
		Colour: cfg.Console.Colour,
	})
	opts.Processes = process.NewStarter(process.Config{
		Shell:  cfg.Process.Shell,
		Logger: logger,
	})
	opts.Scripts = scripts
	if history != nil {
		opts.History = history
	}

	runner := engine.NewRunner(opts)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		aborted := false
		for range sigCh {
			if aborted {
				logger.Warn("killing child processes")
				runner.BreakAll()
				cancel()
				return
			}
			aborted = true
			logger.Info("aborting scripts")
			runner.AbortAll("interrupted")
		}
	}()

	go routeInput(os.Stdin, runner, promptW, logger)

	flags := engine.FlagExternal
	if cfg.Engine.ShareLocalVars {
		flags |= engine.FlagShareLocalVars
	}

	e, err := runner.Run(ctx, name, lines, args[1:], flags)
	if err != nil {
		if e != nil {
			logger.Debug("script ended", mdwlog.Fields{
				"status":     string(e.Status()),
				"exec_count": e.ExecCount(),
				"goto_count": e.GotoCount(),
			})
		}
		return err
	}
	return nil
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("stop-on-error") {
		cfg.Engine.StopOnError = runStopOnError
	}
	if runExecMax > 0 {
		cfg.Engine.ExecMaxCount = runExecMax
	}
	if runGotoMax > 0 {
		cfg.Engine.GotoMaxCount = runGotoMax
	}
	if runShareVars {
		cfg.Engine.ShareLocalVars = true
	}
}

// engineOptions maps the engine and process config sections onto the
// options every engine of the run shares
func engineOptions(cfg *config.Config, logger *mdwlog.Logger) engine.Options {
	wd, _ := os.Getwd()
	return engine.Options{
		ExecMaxCount:     cfg.Engine.ExecMaxCount,
		GotoMaxCount:     cfg.Engine.GotoMaxCount,
		StopOnError:      cfg.Engine.StopOnError,
		CommentPrefix:    cfg.Engine.CommentPrefix,
		CollateralPrefix: cfg.Engine.CollateralPrefix,
		NoEmptyVars:      cfg.Engine.NoEmptyVars,
		DebugLog:         cfg.Engine.DebugLog,
		Dir:              wd,
		ExitCommand:      cfg.Process.ExitCommand,
		KillTimeout:      cfg.Process.KillTimeout.Duration,
		Logger:           logger,
	}
}

func consoleOutput(cfg *config.Config) io.Writer {
	if cfg.Console.Output == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// resolveScript reads a script file, falling back to the script library
func resolveScript(ctx context.Context, scripts store.ScriptStore, arg string) (string, []string, error) {
	data, err := os.ReadFile(arg)
	if err == nil {
		name := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		return name, engine.SplitScript(string(data)), nil
	}
	if !os.IsNotExist(err) {
		return "", nil, mdwerror.Wrap(err, "cannot read script file").
			WithCode(mdwerror.CodeInternal).
			WithOperation("cmd.resolveScript").
			WithDetail("path", arg)
	}

	lines, serr := scripts.Script(ctx, arg)
	if serr != nil {
		return "", nil, serr
	}
	return arg, lines, nil
}

// routeInput forwards stdin lines to the engine that supervises a child
// process. Other lines answer INPUTBOX prompts.
func routeInput(r io.Reader, runner *engine.Runner, prompt io.Writer, logger *mdwlog.Logger) {
	answers := make(chan string, 16)
	go func() {
		for line := range answers {
			if _, err := io.WriteString(prompt, line+"\n"); err != nil {
				return
			}
		}
	}()
	defer close(answers)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		target := processEngine(runner.Tree())
		if target == nil {
			answers <- line
			continue
		}
		if err := target.SendInput(line); err != nil {
			logger.WarnWithErr("input not delivered", err, mdwlog.Fields{"engine": target.ID().String()})
			fmt.Fprintf(os.Stderr, "input not delivered: %v\n", err)
		}
	}
}

// processEngine returns an engine whose child process is running
func processEngine(tree *engine.Tree) *engine.Engine {
	for _, e := range tree.Engines() {
		if e.IsChildProcessRunning() {
			return e
		}
	}
	return nil
}
