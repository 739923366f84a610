package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msto63/mExec/internal/engine"
	"github.com/msto63/mExec/internal/store"
)

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Manage the script library",
	Long: `Manages the named scripts that NPP_EXEC and "mexec run" resolve
from the library.

Examples:
  mexec scripts                       # list scripts
  mexec scripts show build
  mexec scripts save build build.txt
  mexec scripts delete build`,
	RunE: runScriptsList,
}

var scriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scripts",
	RunE:  runScriptsList,
}

var scriptsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored script",
	Args:  cobra.ExactArgs(1),
	RunE:  runScriptsShow,
}

var scriptsSaveCmd = &cobra.Command{
	Use:   "save <name> <file>",
	Short: "Store a script file under a name",
	Args:  cobra.ExactArgs(2),
	RunE:  runScriptsSave,
}

var scriptsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored script",
	Args:  cobra.ExactArgs(1),
	RunE:  runScriptsDelete,
}

func init() {
	rootCmd.AddCommand(scriptsCmd)
	scriptsCmd.AddCommand(scriptsListCmd, scriptsShowCmd, scriptsSaveCmd, scriptsDeleteCmd)
}

func openScriptStore() (store.ScriptStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		printError("cannot load config", err)
		return nil, err
	}
	newLogger(cfg)
	scripts, err := store.OpenScripts(cfg.Store)
	if err != nil {
		printError("cannot open script library", err)
		return nil, err
	}
	return scripts, nil
}

func runScriptsList(cmd *cobra.Command, args []string) error {
	scripts, err := openScriptStore()
	if err != nil {
		return err
	}
	defer scripts.Close()

	infos, err := scripts.List(context.Background())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No scripts stored.")
		return nil
	}

	fmt.Printf("%-30s %-8s %-20s\n", "NAME", "LINES", "UPDATED")
	fmt.Println(strings.Repeat("-", 60))
	for _, info := range infos {
		fmt.Printf("%-30s %-8d %-20s\n", info.Name, info.Lines, info.Updated.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
	fmt.Printf("Total: %d script(s)\n", len(infos))
	return nil
}

func runScriptsShow(cmd *cobra.Command, args []string) error {
	scripts, err := openScriptStore()
	if err != nil {
		return err
	}
	defer scripts.Close()

	lines, err := scripts.Script(context.Background(), args[0])
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func runScriptsSave(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", args[1], err)
	}

	scripts, err := openScriptStore()
	if err != nil {
		return err
	}
	defer scripts.Close()

	lines := engine.SplitScript(string(data))
	if err := scripts.Save(context.Background(), args[0], lines); err != nil {
		return err
	}
	fmt.Printf("Saved %s (%d lines)\n", args[0], len(lines))
	return nil
}

func runScriptsDelete(cmd *cobra.Command, args []string) error {
	scripts, err := openScriptStore()
	if err != nil {
		return err
	}
	defer scripts.Close()

	if err := scripts.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
