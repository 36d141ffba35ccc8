// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile compares a source image directory with its converted
// output directory by filename stem. It decides the conversion state of a
// directory and how a partial one should be brought up to date. It never
// modifies the filesystem.
package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/webpify/pkg/types"
)

// ErrDirectoryNotFound is returned when a listed directory does not exist.
var ErrDirectoryNotFound = errors.New("directory not found")

// ListMatchingFiles returns the paths of entries in directory whose names
// end with one of extensions. Subdirectories are never returned and are not
// descended into.
func ListMatchingFiles(directory string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("listing %s: %w", directory, ErrDirectoryNotFound)
		}
		return nil, fmt.Errorf("listing %s: %w", directory, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !hasSuffix(entry.Name(), extensions) {
			continue
		}
		paths = append(paths, filepath.Join(directory, entry.Name()))
	}
	return paths, nil
}

// SourceImages lists the recognized source images in dir.
func SourceImages(dir string) ([]types.ImageRef, error) {
	paths, err := ListMatchingFiles(dir, types.SourceExtensions)
	if err != nil {
		return nil, err
	}
	refs := make([]types.ImageRef, len(paths))
	for i, p := range paths {
		refs[i] = types.NewImageRef(p)
	}
	return refs, nil
}

// FindMissing returns the stems of source images in sourceDir that have no
// .webp counterpart in outputDir, sorted. A missing outputDir means every
// source stem is missing.
func FindMissing(sourceDir, outputDir string) ([]string, error) {
	sources, err := stemSet(sourceDir, types.SourceExtensions)
	if err != nil {
		return nil, err
	}
	outputs, err := stemSet(outputDir, []string{types.WebPExtension})
	if err != nil && !errors.Is(err, ErrDirectoryNotFound) {
		return nil, err
	}
	return difference(sources, outputs), nil
}

// StrayStems returns the stems of .webp files sitting directly in
// sourceDir, sorted.
func StrayStems(sourceDir string) ([]string, error) {
	strays, err := stemSet(sourceDir, []string{types.WebPExtension})
	if err != nil {
		return nil, err
	}
	return sortedKeys(strays), nil
}

// AmbiguousStems returns stems shared by more than one source image, such as
// photo.png and photo.jpg. The reconciler cannot tell which of them produced
// a given output.
func AmbiguousStems(sourceDir string) ([]string, error) {
	paths, err := ListMatchingFiles(sourceDir, types.SourceExtensions)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(paths))
	for _, p := range paths {
		counts[types.Stem(p)]++
	}
	var out []string
	for stem, n := range counts {
		if n > 1 {
			out = append(out, stem)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ClassifyState reports the conversion state of sourceDir against outputDir.
// NoImages takes precedence over every other state. In MatchCount mode the
// directory is already converted when the number of source images equals
// the number of .webp outputs; in MatchStems mode every source stem must
// have an output.
func ClassifyState(sourceDir, outputDir string, mode types.MatchMode) (types.State, error) {
	images, err := ListMatchingFiles(sourceDir, types.SourceExtensions)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return types.StateNoImages, nil
	}

	outputs, err := ListMatchingFiles(outputDir, []string{types.WebPExtension})
	if errors.Is(err, ErrDirectoryNotFound) {
		return types.StateUnconverted, nil
	}
	if err != nil {
		return "", err
	}
	if len(outputs) == 0 {
		return types.StatePartial, nil
	}

	switch mode {
	case types.MatchCount:
		if len(images) == len(outputs) {
			return types.StateAlreadyConverted, nil
		}
	default:
		missing, err := FindMissing(sourceDir, outputDir)
		if err != nil {
			return "", err
		}
		if len(missing) == 0 {
			return types.StateAlreadyConverted, nil
		}
	}
	return types.StatePartial, nil
}

// ResolvePartial decides how to finish a partial directory. When every
// missing stem already has a loose .webp in sourceDir the conversion ran but
// the move did not, so only a move is needed. The missing stems are returned
// with the action.
func ResolvePartial(sourceDir, outputDir string) (types.Action, []string, error) {
	missing, err := FindMissing(sourceDir, outputDir)
	if err != nil {
		return types.ActionNone, nil, err
	}
	strays, err := stemSet(sourceDir, []string{types.WebPExtension})
	if err != nil {
		return types.ActionNone, nil, err
	}
	for _, stem := range missing {
		if _, ok := strays[stem]; !ok {
			return types.ActionConvertThenMove, missing, nil
		}
	}
	return types.ActionMoveOnly, missing, nil
}

func stemSet(dir string, extensions []string) (map[string]struct{}, error) {
	paths, err := ListMatchingFiles(dir, extensions)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[types.Stem(p)] = struct{}{}
	}
	return set, nil
}

func difference(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func hasSuffix(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
