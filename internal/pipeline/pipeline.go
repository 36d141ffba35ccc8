// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives one conversion run over a directory: classify the
// directory, decide what is missing, convert, move outputs into place, and
// report. All state is passed explicitly; nothing is kept between runs
// except what is on disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pdiddy/webpify/internal/convert"
	"github.com/pdiddy/webpify/internal/organize"
	"github.com/pdiddy/webpify/internal/reconcile"
	"github.com/pdiddy/webpify/pkg/types"
)

// Plan is what a run would do to a directory.
type Plan struct {
	Dir       string       `json:"dir" yaml:"dir"`
	OutputDir string       `json:"output_dir" yaml:"output_dir"`
	State     types.State  `json:"state" yaml:"state"`
	Action    types.Action `json:"action,omitempty" yaml:"action,omitempty"`
	Images    int          `json:"images" yaml:"images"`
	Missing   []string     `json:"missing,omitempty" yaml:"missing,omitempty"`
	Strays    []string     `json:"strays,omitempty" yaml:"strays,omitempty"`
	Ambiguous []string     `json:"ambiguous,omitempty" yaml:"ambiguous,omitempty"`

	// ToConvert lists the images that will be encoded.
	ToConvert []types.ImageRef `json:"to_convert,omitempty" yaml:"to_convert,omitempty"`

	// MoveStems restricts which stray outputs are moved. Nil moves every
	// stray .webp in the directory.
	MoveStems []string `json:"move_stems,omitempty" yaml:"move_stems,omitempty"`
}

// NeedsWork reports whether running the plan would change anything.
func (p Plan) NeedsWork() bool {
	return p.State == types.StateUnconverted || p.State == types.StatePartial
}

// Inspect classifies dir and works out what a run would do. It does not
// touch the filesystem.
func Inspect(dir string, cfg types.ConvertConfig) (Plan, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Plan{}, fmt.Errorf("resolving %s: %w", dir, err)
	}
	plan := Plan{Dir: abs, OutputDir: filepath.Join(abs, cfg.OutputDir)}

	images, err := reconcile.SourceImages(abs)
	if err != nil {
		return plan, err
	}
	plan.Images = len(images)

	if plan.State, err = reconcile.ClassifyState(abs, plan.OutputDir, cfg.Match); err != nil {
		return plan, err
	}
	if plan.Ambiguous, err = reconcile.AmbiguousStems(abs); err != nil {
		return plan, err
	}
	if plan.Strays, err = reconcile.StrayStems(abs); err != nil {
		return plan, err
	}

	switch plan.State {
	case types.StateNoImages:
		return plan, nil

	case types.StateAlreadyConverted:
		// Count mode can call a directory converted while stems are
		// missing; report them anyway.
		plan.Missing, err = reconcile.FindMissing(abs, plan.OutputDir)
		return plan, err

	case types.StateUnconverted:
		plan.Missing, err = reconcile.FindMissing(abs, plan.OutputDir)
		if err != nil {
			return plan, err
		}
		plan.ToConvert = firstPerStem(images, nil)
		return plan, nil

	case types.StatePartial:
		plan.Action, plan.Missing, err = reconcile.ResolvePartial(abs, plan.OutputDir)
		if err != nil {
			return plan, err
		}
		plan.MoveStems = append([]string{}, plan.Missing...)
		if plan.Action == types.ActionConvertThenMove {
			strays := make(map[string]bool, len(plan.Strays))
			for _, s := range plan.Strays {
				strays[s] = true
			}
			need := make(map[string]bool, len(plan.Missing))
			for _, s := range plan.Missing {
				if !strays[s] {
					need[s] = true
				}
			}
			plan.ToConvert = firstPerStem(images, need)
		}
		return plan, nil
	}
	return plan, fmt.Errorf("unexpected state %q", plan.State)
}

// firstPerStem keeps the first image for each stem, optionally restricted to
// the stems in want. Ambiguous stems share one output file, so encoding a
// second source would only be skipped.
func firstPerStem(images []types.ImageRef, want map[string]bool) []types.ImageRef {
	seen := make(map[string]bool, len(images))
	var out []types.ImageRef
	for _, img := range images {
		if seen[img.Stem] || (want != nil && !want[img.Stem]) {
			continue
		}
		seen[img.Stem] = true
		out = append(out, img)
	}
	return out
}

// Runner executes plans.
type Runner struct {
	Converter convert.Converter
	Config    types.ConvertConfig

	// Out receives per-file progress lines.
	Out io.Writer

	// Log receives leveled diagnostics. Nil discards them.
	Log *log.Logger

	now func() time.Time
}

// Run brings dir up to date and returns a report of what happened. The
// report is filled in even when an error is returned. Conversion and move
// failures do not stop the run; they are collected into the returned error.
func (r *Runner) Run(ctx context.Context, dir string) (types.RunReport, error) {
	now := r.now
	if now == nil {
		now = time.Now
	}
	logger := r.Log
	if logger == nil {
		logger = log.New(io.Discard)
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}

	start := now()
	report := types.RunReport{
		ID:        uuid.NewString(),
		StartedAt: start,
		DryRun:    r.Config.DryRun,
	}
	finish := func(err error) (types.RunReport, error) {
		report.Elapsed = now().Sub(start)
		return report, err
	}

	plan, err := Inspect(dir, r.Config)
	report.Dir, report.OutputDir = plan.Dir, plan.OutputDir
	if err != nil {
		return finish(err)
	}
	report.State = plan.State
	report.Action = plan.Action
	report.Missing = plan.Missing
	report.Ambiguous = plan.Ambiguous

	logger.Debug("classified directory", "dir", plan.Dir, "state", plan.State, "images", plan.Images, "missing", len(plan.Missing))
	for _, stem := range plan.Ambiguous {
		logger.Warn("several source images share a name; only one is converted", "stem", stem)
	}

	if !plan.NeedsWork() {
		return finish(nil)
	}
	if r.Config.DryRun {
		for _, ref := range plan.ToConvert {
			fmt.Fprintf(out, "would convert: %s\n", filepath.Base(ref.Path))
		}
		for _, stem := range plan.MoveStems {
			fmt.Fprintf(out, "would move:    %s%s\n", stem, types.WebPExtension)
		}
		return finish(nil)
	}

	var errs []error

	if len(plan.ToConvert) > 0 {
		logger.Info("converting images", "count", len(plan.ToConvert), "quality", r.Config.Quality)
		batch := convert.ConvertBatch(ctx, r.Converter, plan.ToConvert, convert.Options{
			Quality: r.Config.Quality,
			Timeout: r.Config.Timeout,
		}, out)
		applyBatch(&report, batch)
		if err := batch.Err(); err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			// Leave finished outputs as strays; the next run moves them.
			return finish(ctx.Err())
		}
	} else if plan.Action == types.ActionMoveOnly {
		logger.Info("converted images found in source directory, moving them", "count", len(plan.MoveStems), "to", plan.OutputDir)
	}

	moves, err := organize.MoveStray(plan.Dir, plan.OutputDir, plan.MoveStems, out)
	if err != nil {
		return finish(fmt.Errorf("organizing outputs: %w", err))
	}
	report.Moved = len(moves.Moved)
	report.Conflicts = len(moves.Conflicts)
	report.MoveFailed = moves.Failed()
	for _, c := range moves.Conflicts {
		logger.Warn("output already exists, left stray file in place", "file", c)
	}
	if err := moves.Err(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return finish(fmt.Errorf("%d conversion(s) and %d move(s) failed: %w",
			report.Failed, report.MoveFailed, errors.Join(errs...)))
	}
	return finish(nil)
}

func applyBatch(report *types.RunReport, batch convert.BatchResult) {
	report.Converted = batch.Converted
	report.Skipped = batch.Skipped
	report.Failed = batch.Failed
	for _, o := range batch.Outcomes {
		img := types.ImageOutcome{
			Stem:     o.Stem,
			Source:   o.Source,
			Status:   o.Status,
			BytesIn:  o.BytesIn,
			BytesOut: o.BytesOut,
			Duration: o.Duration,
		}
		if o.Err != nil {
			img.Error = o.Err.Error()
		}
		if o.Status == types.ConversionDone {
			report.BytesIn += o.BytesIn
			report.BytesOut += o.BytesOut
		}
		report.Images = append(report.Images, img)
	}
}
