package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/webpify/internal/pipeline"
	"github.com/pdiddy/webpify/internal/report"
	"github.com/pdiddy/webpify/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status [directory]",
	Short: "Show the conversion state of a directory",
	Long: `Status classifies the directory without changing it and lists the images
that have no WebP counterpart, converted files that were never moved into
the output directory, and source images that share a name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := types.ParseReportFormat(formatFlag)
		if err != nil {
			return err
		}

		plan, err := pipeline.Inspect(targetDir(args), cfg.Convert)
		if err != nil {
			return err
		}
		return report.WritePlan(cmd.OutOrStdout(), plan, format)
	},
}

func init() {
	statusCmd.Flags().String("format", string(types.ReportTable), "output format: table, json, or yaml")

	rootCmd.AddCommand(statusCmd)
}
