package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/webpify/internal/encoder"
	"github.com/pdiddy/webpify/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the WebP encoder is installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rt, err := encoder.Detect(cmd.Context(), cfg.Convert.Encoder)
		if err != nil {
			return err
		}
		v, err := rt.Version(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (version %s)\n", rt.Name(), rt.Path(), v)
		return nil
	},
}

func init() {
	checkCmd.Flags().String("encoder", types.DefaultEncoder, "encoder binary name or path")

	rootCmd.AddCommand(checkCmd)
}
