// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package organize moves converted .webp files from the source directory
// into the output subdirectory.
package organize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/pdiddy/webpify/internal/reconcile"
	"github.com/pdiddy/webpify/pkg/types"
)

// ErrMoveFailed matches every *MoveError.
var ErrMoveFailed = errors.New("move failed")

// MoveError reports a file that could not be moved.
type MoveError struct {
	Src string
	Dst string
	Err error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("moving %s to %s: %v", e.Src, e.Dst, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMoveFailed) match.
func (e *MoveError) Is(target error) bool { return target == ErrMoveFailed }

// MoveResult lists what MoveStray did. Paths are destination paths for
// Moved and source paths for Conflicts.
type MoveResult struct {
	Moved     []string `json:"moved,omitempty" yaml:"moved,omitempty"`
	Conflicts []string `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Errors    []error  `json:"-" yaml:"-"`
}

// Failed returns the number of files that could not be moved.
func (r MoveResult) Failed() int { return len(r.Errors) }

// Err joins all move errors, or returns nil.
func (r MoveResult) Err() error { return errors.Join(r.Errors...) }

// MoveStray creates outputDir if needed and moves loose .webp files from
// sourceDir into it. When stems is non-nil only files with those stems are
// moved. A file whose destination already exists is left in place and
// reported as a conflict. Per-file status lines go to w.
func MoveStray(sourceDir, outputDir string, stems []string, w io.Writer) (MoveResult, error) {
	var result MoveResult

	strays, err := reconcile.ListMatchingFiles(sourceDir, []string{types.WebPExtension})
	if err != nil {
		return result, err
	}

	var want map[string]bool
	if stems != nil {
		want = make(map[string]bool, len(stems))
		for _, s := range stems {
			want[s] = true
		}
	}

	var selected []string
	for _, p := range strays {
		if want == nil || want[types.Stem(p)] {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return result, nil
	}
	sort.Strings(selected)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	for _, src := range selected {
		dst := filepath.Join(outputDir, filepath.Base(src))
		if _, err := os.Lstat(dst); err == nil {
			result.Conflicts = append(result.Conflicts, src)
			fmt.Fprintf(w, "conflict:  %s (already in %s)\n", filepath.Base(src), filepath.Base(outputDir))
			continue
		}
		if err := Move(src, dst); err != nil {
			result.Errors = append(result.Errors, err)
			fmt.Fprintf(w, "failed:    %s (%v)\n", filepath.Base(src), errors.Unwrap(err))
			continue
		}
		result.Moved = append(result.Moved, dst)
		fmt.Fprintf(w, "moved:     %s\n", filepath.Base(src))
	}
	return result, nil
}

// Move renames src to dst. If the rename fails because the paths are on
// different filesystems, it copies, checks the size, and removes src.
// Errors are *MoveError.
func Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return &MoveError{Src: src, Dst: dst, Err: err}
	}
	if err := copyVerified(src, dst); err != nil {
		_ = os.Remove(dst)
		return &MoveError{Src: src, Dst: dst, Err: err}
	}
	if err := os.Remove(src); err != nil {
		return &MoveError{Src: src, Dst: dst, Err: fmt.Errorf("removing source after copy: %w", err)}
	}
	return nil
}

func copyVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	written, err := io.Copy(out, in)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if written != info.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	return nil
}
