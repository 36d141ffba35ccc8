package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/webpify/internal/history"
	"github.com/pdiddy/webpify/internal/report"
	"github.com/pdiddy/webpify/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [directory]",
	Short: "Show recent conversion runs",
	Long: `History lists runs recorded in the history ledger, newest first. With a
directory argument only runs for that directory are shown; --all shows every
directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := types.ParseReportFormat(formatFlag)
		if err != nil {
			return err
		}

		dir := ""
		if !all {
			dir, err = filepath.Abs(targetDir(args))
			if err != nil {
				return fmt.Errorf("resolving directory: %w", err)
			}
		}

		store, err := history.NewStore(cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Recent(cmd.Context(), dir, limit)
		if err != nil {
			return err
		}
		return report.WriteHistory(cmd.OutOrStdout(), runs, format, time.Now())
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	historyCmd.Flags().Bool("all", false, "show runs for every directory")
	historyCmd.Flags().String("format", string(types.ReportTable), "output format: table, json, or yaml")

	rootCmd.AddCommand(historyCmd)
}
