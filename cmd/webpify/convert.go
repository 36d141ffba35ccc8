package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/pdiddy/webpify/internal/convert"
	"github.com/pdiddy/webpify/internal/dirlock"
	"github.com/pdiddy/webpify/internal/encoder"
	"github.com/pdiddy/webpify/internal/history"
	"github.com/pdiddy/webpify/internal/pipeline"
	"github.com/pdiddy/webpify/internal/report"
	"github.com/pdiddy/webpify/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [directory]",
	Short: "Convert images to WebP and move them into the output directory",
	Long: `Convert classifies the directory and does only what is missing:

  no images          nothing to do
  already converted  nothing to do
  not converted      convert every image, then move the results
  partial            move converted files left in the directory, and
                     convert images that have no WebP counterpart

Source images are never modified or removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("quality", "q", types.DefaultQuality, "WebP quality factor (0-100)")
	cmd.Flags().String("encoder", types.DefaultEncoder, "encoder binary name or path")
	cmd.Flags().Duration("timeout", 0, "per-image encoder timeout (0 means none)")
	cmd.Flags().Bool("dry-run", false, "show what would be done without changing anything")
	cmd.Flags().Bool("pause", false, "wait for Enter before exiting (interactive terminals only)")
	cmd.Flags().Bool("no-history", false, "do not record this run in the history ledger")
	cmd.Flags().String("report", string(types.ReportNone), "print a run report: table, json, yaml, or none")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reportFlag, _ := cmd.Flags().GetString("report")
	format, err := types.ParseReportFormat(reportFlag)
	if err != nil {
		return err
	}
	pause, _ := cmd.Flags().GetBool("pause")
	defer waitForEnter(pause)

	logger := newLogger(cfg.Verbose)
	dir := targetDir(args)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	if !cfg.Convert.DryRun {
		lock, err := dirlock.Acquire(dir)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("could not release lock", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &pipeline.Runner{
		Converter: &lazyConverter{bin: cfg.Convert.Encoder, log: logger},
		Config:    cfg.Convert,
		Out:       cmd.OutOrStdout(),
		Log:       logger,
	}
	rep, runErr := runner.Run(ctx, dir)

	switch rep.State {
	case types.StateNoImages:
		fmt.Fprintln(cmd.OutOrStdout(), "There are no images in the directory.")
	case types.StateAlreadyConverted:
		fmt.Fprintln(cmd.OutOrStdout(), "All the images exist in WebP format.")
	case types.StatePartial, types.StateUnconverted:
		if !cfg.Convert.DryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "\nTask completed in %.4fs\n", rep.Elapsed.Seconds())
		}
	}

	if cfg.History.Enabled && rep.State != "" && !rep.DryRun {
		recordRun(cfg.History, rep, logger)
	}

	if err := report.WriteRun(cmd.OutOrStdout(), rep, format); err != nil {
		return err
	}
	return runErr
}

// recordRun writes rep to the history ledger. Ledger problems never fail a
// run.
func recordRun(cfg types.HistoryConfig, rep types.RunReport, logger *log.Logger) {
	store, err := history.NewStore(cfg)
	if err != nil {
		logger.Warn("history unavailable", "err", err)
		return
	}
	defer store.Close()
	if err := store.Record(context.Background(), rep); err != nil {
		logger.Warn("could not record run", "err", err)
	}
}

// lazyConverter finds the encoder on first use, so directories that need no
// encoding work without cwebp installed.
type lazyConverter struct {
	bin  string
	log  *log.Logger
	once sync.Once
	conv convert.Converter
	err  error
}

func (l *lazyConverter) Convert(ctx context.Context, inputPath, outputPath string, quality int) error {
	l.once.Do(func() {
		rt, err := encoder.Detect(ctx, l.bin)
		if err != nil {
			l.err = err
			return
		}
		l.log.Debug("using encoder", "path", rt.Path())
		l.conv = convert.NewCwebpConverter(rt)
	})
	if l.err != nil {
		return l.err
	}
	return l.conv.Convert(ctx, inputPath, outputPath, quality)
}

func waitForEnter(enabled bool) {
	if !enabled || !isatty.IsTerminal(os.Stdin.Fd()) {
		return
	}
	fmt.Fprint(os.Stderr, "\nPress Enter to exit ")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}
