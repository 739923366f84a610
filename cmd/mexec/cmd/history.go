package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/mExec/internal/engine"
	"github.com/msto63/mExec/internal/store"
)

var (
	historyLimit  int
	historyScript string
	historyStatus string
	historySince  time.Duration
	historyPrune  time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent script runs",
	Long: `Shows the run history recorded for every finished script engine.

Examples:
  mexec history
  mexec history --limit 50 --status failed
  mexec history --script build --since 24h
  mexec history --prune 720h`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs")
	historyCmd.Flags().StringVar(&historyScript, "script", "", "only runs of this script")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "only runs with this status (done, failed, aborted)")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only runs started within this duration")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete runs older than this duration")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("cannot load config", err)
		return err
	}
	newLogger(cfg)

	history, err := store.NewSQLiteHistoryStore(store.SQLiteConfig{Path: cfg.Store.HistoryPath})
	if err != nil {
		printError("cannot open run history", err)
		return err
	}
	defer history.Close()

	ctx := context.Background()
	if historyPrune > 0 {
		n, err := history.Prune(ctx, historyPrune)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d run(s)\n", n)
		return nil
	}

	filter := store.HistoryFilter{
		Script: historyScript,
		Status: engine.Status(historyStatus),
		Limit:  historyLimit,
	}
	if historySince > 0 {
		filter.Since = time.Now().Add(-historySince)
	}

	runs, err := history.Recent(ctx, filter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-20s %-20s %-8s %-8s %-6s %-6s %s\n", "STARTED", "SCRIPT", "STATUS", "TIME", "EXEC", "GOTO", "ERROR")
	fmt.Println(strings.Repeat("-", 90))
	for _, run := range runs {
		fmt.Printf("%-20s %-20s %-8s %-8s %-6d %-6d %s\n",
			run.Started.Local().Format("2006-01-02 15:04:05"),
			truncate(run.Script, 20),
			run.Status,
			formatDuration(run.Finished.Sub(run.Started)),
			run.ExecCount,
			run.GotoCount,
			run.ErrorCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}
