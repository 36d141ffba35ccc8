// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns source images into WebP files through a pluggable
// Converter. Outputs are written next to their source as <stem>.webp; moving
// them into the output directory is the organizer's job.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/webpify/pkg/types"
)

// ErrConversionFailed matches every *ConversionError.
var ErrConversionFailed = errors.New("conversion failed")

// ConversionError reports a failed conversion of one source image.
type ConversionError struct {
	Stem string
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConversionFailed) match.
func (e *ConversionError) Is(target error) bool { return target == ErrConversionFailed }

// Converter encodes one image file into a WebP file. The cwebp-backed
// implementation is the production one; tests inject fakes.
type Converter interface {
	// Convert encodes inputPath into outputPath at the given quality (0-100).
	Convert(ctx context.Context, inputPath, outputPath string, quality int) error
}

// Options controls a conversion run.
type Options struct {
	// Quality is passed to the converter (0-100).
	Quality int

	// Timeout bounds each conversion. Zero means no limit.
	Timeout time.Duration
}

// Outcome records what happened to a single image.
type Outcome struct {
	Stem     string                 `json:"stem" yaml:"stem"`
	Source   string                 `json:"source" yaml:"source"`
	Output   string                 `json:"output" yaml:"output"`
	Status   types.ConversionStatus `json:"status" yaml:"status"`
	BytesIn  int64                  `json:"bytes_in" yaml:"bytes_in"`
	BytesOut int64                  `json:"bytes_out" yaml:"bytes_out"`
	Duration time.Duration          `json:"duration" yaml:"duration"`
	Err      error                  `json:"-" yaml:"-"`
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int       `json:"converted" yaml:"converted"`
	Skipped   int       `json:"skipped" yaml:"skipped"`
	Failed    int       `json:"failed" yaml:"failed"`
	Outcomes  []Outcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

// Total returns the total number of images processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any image failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Err joins the errors of every failed outcome, or returns nil.
func (r BatchResult) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// OutputPath returns where ConvertImage writes the WebP for ref: the
// source directory, named after the stem.
func OutputPath(ref types.ImageRef) string {
	return filepath.Join(filepath.Dir(ref.Path), ref.Stem+types.WebPExtension)
}

// ConvertImage converts a single image, writing <stem>.webp beside the
// source. If that file already exists the conversion is skipped.
func ConvertImage(ctx context.Context, c Converter, ref types.ImageRef, opts Options, w io.Writer) Outcome {
	out := Outcome{Stem: ref.Stem, Source: ref.Path, Output: OutputPath(ref)}

	if info, err := os.Stat(ref.Path); err == nil {
		out.BytesIn = info.Size()
	}

	if info, err := os.Stat(out.Output); err == nil {
		out.Status = types.ConversionSkipped
		out.BytesOut = info.Size()
		fmt.Fprintf(w, "skipped:   %s (%s already exists)\n", ref.Stem, filepath.Base(out.Output))
		return out
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.Convert(runCtx, ref.Path, out.Output, opts.Quality)
	out.Duration = time.Since(start)
	if err != nil {
		// Never leave a half-written output behind: it would be taken for
		// a stray conversion on the next run.
		_ = os.Remove(out.Output)
		out.Status = types.ConversionFailed
		out.Err = &ConversionError{Stem: ref.Stem, Path: ref.Path, Err: err}
		fmt.Fprintf(w, "failed:    %s (%v)\n", ref.Stem, err)
		return out
	}

	if info, err := os.Stat(out.Output); err == nil {
		out.BytesOut = info.Size()
	}
	out.Status = types.ConversionDone
	fmt.Fprintf(w, "converted: %s\n", ref.Stem)
	return out
}

// ConvertBatch converts refs one after another, printing per-image status to
// w and returning a summary. A cancelled context stops the batch before the
// next image; images not reached are not counted.
func ConvertBatch(ctx context.Context, c Converter, refs []types.ImageRef, opts Options, w io.Writer) BatchResult {
	var result BatchResult
	for _, ref := range refs {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "cancelled: %d image(s) not converted\n", len(refs)-result.Total())
			break
		}
		o := ConvertImage(ctx, c, ref, opts, w)
		result.Outcomes = append(result.Outcomes, o)
		switch o.Status {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionSkipped:
			result.Skipped++
		case types.ConversionFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// ConvertPaths builds ImageRefs from file paths and delegates to
// ConvertBatch.
func ConvertPaths(ctx context.Context, c Converter, paths []string, opts Options, w io.Writer) BatchResult {
	refs := make([]types.ImageRef, len(paths))
	for i, p := range paths {
		refs[i] = types.NewImageRef(p)
	}
	return ConvertBatch(ctx, c, refs, opts, w)
}
