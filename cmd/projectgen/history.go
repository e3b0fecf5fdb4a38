package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"projectgen/pkg/logx"
	"projectgen/pkg/persistence"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var (
	historyProject string
	historyLimit   int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historyProject, "project", "p", "", "only runs of this project")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := persistence.OpenInDir(cmd.Context(), cfg.Paths.CheckpointDir)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), historyProject, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID[:min(8, len(r.ID))],
			r.ProjectName,
			r.Status,
			r.StartedAt.Local().Format(time.DateTime),
			runDuration(r),
			truncate(r.Error, 60),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), logx.Table([]string{"Run", "Project", "Status", "Started", "Duration", "Error"}, rows))
	return nil
}

func runDuration(r *persistence.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
