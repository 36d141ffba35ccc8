// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/webpify/pkg/types"
)

// fakeConverter implements Converter for testing. It writes canned bytes to
// the output path or returns an error, depending on configuration.
type fakeConverter struct {
	output []byte
	err    error
	calls  []string
}

func (f *fakeConverter) Convert(ctx context.Context, inputPath, outputPath string, quality int) error {
	f.calls = append(f.calls, inputPath)
	if f.err != nil {
		// Simulate a partially written file left by a crashing encoder.
		_ = os.WriteFile(outputPath, []byte("partial"), 0o644)
		return f.err
	}
	return os.WriteFile(outputPath, f.output, 0o644)
}

// setupImage creates a temporary source image and returns its ref.
func setupImage(t *testing.T, name string) types.ImageRef {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("fake png data"), 0o644); err != nil {
		t.Fatal(err)
	}
	return types.NewImageRef(p)
}

func TestConvertImage(t *testing.T) {
	tests := []struct {
		name       string
		converter  *fakeConverter
		preCreate  bool // create <stem>.webp before running
		wantStatus types.ConversionStatus
		wantLog    string
		wantOutput bool
	}{
		{
			name:       "successful conversion",
			converter:  &fakeConverter{output: []byte("webp")},
			wantStatus: types.ConversionDone,
			wantLog:    "converted:",
			wantOutput: true,
		},
		{
			name:       "skip existing output",
			converter:  &fakeConverter{output: []byte("should not be written")},
			preCreate:  true,
			wantStatus: types.ConversionSkipped,
			wantLog:    "skipped:",
			wantOutput: true,
		},
		{
			name:       "conversion failure removes partial output",
			converter:  &fakeConverter{err: errors.New("exit status 255")},
			wantStatus: types.ConversionFailed,
			wantLog:    "failed:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := setupImage(t, "photo.png")
			outPath := OutputPath(ref)
			if tt.preCreate {
				if err := os.WriteFile(outPath, []byte("existing"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			var log bytes.Buffer
			o := ConvertImage(context.Background(), tt.converter, ref, Options{Quality: 80}, &log)

			if o.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", o.Status, tt.wantStatus)
			}
			if !strings.Contains(log.String(), tt.wantLog) {
				t.Errorf("log output %q does not contain %q", log.String(), tt.wantLog)
			}
			_, statErr := os.Stat(outPath)
			if tt.wantOutput && statErr != nil {
				t.Errorf("expected output at %s", outPath)
			}
			if !tt.wantOutput && statErr == nil {
				t.Errorf("expected no output at %s", outPath)
			}
			if tt.preCreate && len(tt.converter.calls) != 0 {
				t.Errorf("converter should not run for existing output, got %d calls", len(tt.converter.calls))
			}
		})
	}
}

func TestConvertImage_ErrorIsTyped(t *testing.T) {
	ref := setupImage(t, "broken.jpg")
	o := ConvertImage(context.Background(), &fakeConverter{err: errors.New("bad input")}, ref, Options{}, &bytes.Buffer{})

	if !errors.Is(o.Err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", o.Err)
	}
	var convErr *ConversionError
	if !errors.As(o.Err, &convErr) {
		t.Fatalf("expected *ConversionError, got %T", o.Err)
	}
	if convErr.Stem != "broken" {
		t.Errorf("stem = %q, want broken", convErr.Stem)
	}
}

func TestConvertImage_Sizes(t *testing.T) {
	ref := setupImage(t, "photo.png")
	o := ConvertImage(context.Background(), &fakeConverter{output: []byte("abc")}, ref, Options{}, &bytes.Buffer{})
	if o.BytesIn != int64(len("fake png data")) {
		t.Errorf("bytes in = %d", o.BytesIn)
	}
	if o.BytesOut != 3 {
		t.Errorf("bytes out = %d, want 3", o.BytesOut)
	}
}

// deadlineConverter fails unless its context carries a deadline.
type deadlineConverter struct{}

func (deadlineConverter) Convert(ctx context.Context, in, out string, q int) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	return os.WriteFile(out, []byte("webp"), 0o644)
}

func TestConvertImage_Timeout(t *testing.T) {
	ref := setupImage(t, "photo.png")
	o := ConvertImage(context.Background(), deadlineConverter{}, ref, Options{Timeout: time.Minute}, &bytes.Buffer{})
	if o.Status != types.ConversionDone {
		t.Fatalf("status = %q, err = %v", o.Status, o.Err)
	}
}

func TestConvertBatch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "c.jpeg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Pre-create output for "b" to trigger skip.
	if err := os.WriteFile(filepath.Join(dir, "b.webp"), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	conv := &selectiveConverter{
		errors: map[string]error{
			filepath.Join(dir, "c.jpeg"): errors.New("bad jpeg"),
		},
	}

	refs := []types.ImageRef{
		types.NewImageRef(filepath.Join(dir, "a.png")),
		types.NewImageRef(filepath.Join(dir, "b.jpg")),
		types.NewImageRef(filepath.Join(dir, "c.jpeg")),
	}

	var log bytes.Buffer
	result := ConvertBatch(context.Background(), conv, refs, Options{Quality: 80}, &log)

	if result.Converted != 1 {
		t.Errorf("converted = %d, want 1", result.Converted)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if result.Total() != 3 {
		t.Errorf("total = %d, want 3", result.Total())
	}
	if !errors.Is(result.Err(), ErrConversionFailed) {
		t.Errorf("batch error should match ErrConversionFailed, got %v", result.Err())
	}
	if !strings.Contains(log.String(), "Batch summary:") {
		t.Error("batch output should contain summary line")
	}
}

func TestConvertBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ref := setupImage(t, "a.png")
	conv := &fakeConverter{output: []byte("webp")}
	var log bytes.Buffer
	result := ConvertBatch(ctx, conv, []types.ImageRef{ref}, Options{}, &log)

	if result.Total() != 0 {
		t.Errorf("total = %d, want 0", result.Total())
	}
	if len(conv.calls) != 0 {
		t.Errorf("converter called %d times after cancellation", len(conv.calls))
	}
	if !strings.Contains(log.String(), "cancelled:") {
		t.Errorf("log should mention cancellation, got %q", log.String())
	}
}

func TestConvertPaths(t *testing.T) {
	ref := setupImage(t, "test.png")
	conv := &fakeConverter{output: []byte("webp")}
	var log bytes.Buffer
	result := ConvertPaths(context.Background(), conv, []string{ref.Path}, Options{}, &log)

	if result.Converted != 1 {
		t.Errorf("converted = %d, want 1", result.Converted)
	}
	if result.Err() != nil {
		t.Errorf("unexpected error: %v", result.Err())
	}
	out := filepath.Join(filepath.Dir(ref.Path), "test.webp")
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected output file at %s", out)
	}
}

// selectiveConverter fails for configured paths and succeeds otherwise.
type selectiveConverter struct {
	errors map[string]error
}

func (s *selectiveConverter) Convert(ctx context.Context, inputPath, outputPath string, quality int) error {
	if err, ok := s.errors[inputPath]; ok {
		return err
	}
	return os.WriteFile(outputPath, []byte("webp"), 0o644)
}
