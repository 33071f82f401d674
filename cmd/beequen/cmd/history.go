package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/history"
	"github.com/beequen/beequen/internal/render"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past queries",
	Long: `Show finished queries, newest first. With --project only the queries of
that project are listed; --clear deletes them instead.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyLimit  int
	historyClear  bool
	historyOutput string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultLimit, "number of entries")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the listed history")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "table",
		"output format (table, json, yaml, csv, markdown)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	format, err := render.ParseFormat(historyOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled (history.enabled: false)")
	}
	a, err := openApp(cfg, newLogger(cfg), appOptions{History: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var projectUUID string
	if projectArg != "" {
		p, err := resolveProject(a.projects, projectArg)
		if err != nil {
			return err
		}
		projectUUID = p.UUID
	}

	ctx := cmd.Context()
	if historyClear {
		n, err := a.history.Clear(ctx, projectUUID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
		return nil
	}

	entries, err := a.history.List(ctx, projectUUID, historyLimit)
	if err != nil {
		return err
	}
	return render.History(cmd.OutOrStdout(), entries, format)
}
