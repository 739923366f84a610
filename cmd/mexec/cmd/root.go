package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mdwlog "github.com/msto63/mExec/foundation/core/log"
	"github.com/msto63/mExec/pkg/core/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mexec",
	Short: "mExec - embedded command script engine",
	Long: `mExec runs NppExec style command scripts: variables, IF/ELSE/ENDIF,
GOTO/LABEL, nested scripts via NPP_EXEC and supervised child processes.

Commands:
  run       - run a script file or a stored script
  commands  - list the script commands
  scripts   - manage the script library
  history   - show recent script runs
  version   - show version information`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadFromEnv()
}

// newLogger builds the process logger from the general config section.
// Logs go to stderr so they never mix with script output.
func newLogger(cfg *config.Config) *mdwlog.Logger {
	level, err := mdwlog.ParseLevel(cfg.General.LogLevel)
	if err != nil {
		level = mdwlog.LevelInfo
	}
	if verbose {
		level = mdwlog.LevelDebug
	}
	format, err := mdwlog.ParseFormat(cfg.General.LogFormat)
	if err != nil {
		format = mdwlog.FormatConsole
	}

	logger := mdwlog.NewWithConfig(mdwlog.Config{
		Level:  level,
		Format: format,
		Output: os.Stderr,
		Name:   "mexec",
	})
	mdwlog.SetDefault(logger)
	return logger
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
