// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the webpify CLI. It converts the PNG
// and JPEG images of a directory to WebP with cwebp and keeps the results in
// a webp/ subdirectory.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/webpify/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command. Without a subcommand it behaves like
// "webpify convert".
var rootCmd = &cobra.Command{
	Use:   "webpify [directory]",
	Short: "Convert a directory of PNG/JPEG images to WebP",
	Long: `webpify converts the .png, .jpg, and .jpeg images of a directory to WebP
using the cwebp encoder and collects the results in a webp/ subdirectory.

Running it again is safe: images that already have a WebP counterpart are
left alone, converted files that were never moved are moved, and images that
were never converted are converted.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runConvert,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./webpify.yaml or ~/.config/webpify/webpify.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("output-dir", types.DefaultOutputDir, "name of the subdirectory that receives .webp files")
	rootCmd.PersistentFlags().String("match", string(types.MatchStems), "already-converted check: stems or count")

	addConvertFlags(rootCmd)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("webpify")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "webpify"))
		}
	}

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so environment overrides reach
// Unmarshal, and sets the env prefix.
func setDefaults(v *viper.Viper) {
	def := types.DefaultConfig()
	v.SetDefault("convert.quality", def.Convert.Quality)
	v.SetDefault("convert.output_dir", def.Convert.OutputDir)
	v.SetDefault("convert.encoder", def.Convert.Encoder)
	v.SetDefault("convert.match", string(def.Convert.Match))
	v.SetDefault("convert.timeout", def.Convert.Timeout)
	v.SetDefault("convert.dry_run", def.Convert.DryRun)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.path", def.History.Path)
	v.SetDefault("verbose", def.Verbose)

	v.SetEnvPrefix("WEBPIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"quality":    "convert.quality",
	"output-dir": "convert.output_dir",
	"encoder":    "convert.encoder",
	"match":      "convert.match",
	"timeout":    "convert.timeout",
	"dry-run":    "convert.dry_run",
	"verbose":    "verbose",
}

// loadConfig binds cmd's flags to viper keys and decodes the merged
// configuration (flags > env > config file > defaults).
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	v := viper.GetViper()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return types.Config{}, fmt.Errorf("binding flag --%s: %w", flag, err)
			}
		}
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		return cfg, err
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History.Enabled = false
	}
	return cfg, nil
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "webpify"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// targetDir returns the directory argument, or the working directory.
func targetDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		newLogger(false).Error(err)
		os.Exit(1)
	}
}
