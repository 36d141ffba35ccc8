// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"strings"
)

// SourceExtensions lists the recognized source image suffixes. Matching is
// a case-sensitive suffix match.
var SourceExtensions = []string{".png", ".jpg", ".jpeg"}

// WebPExtension is the suffix of converted output files.
const WebPExtension = ".webp"

// ImageRef identifies a source image by stem and absolute path. Two refs
// with the same stem are the same image regardless of extension.
type ImageRef struct {
	// Stem is the filename without its trailing extension (e.g. "photo").
	Stem string `json:"stem" yaml:"stem"`

	// Path is the absolute path to the source file.
	Path string `json:"path" yaml:"path"`
}

// NewImageRef builds an ImageRef from a file path. Relative paths are
// resolved against the working directory when possible.
func NewImageRef(path string) ImageRef {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return ImageRef{Stem: Stem(path), Path: path}
}

// Stem strips the directory and the last extension from name:
// "dir/a.b.png" -> "a.b".
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// State is the conversion state of a source directory.
type State string

const (
	StateNoImages         State = "no_images"
	StateAlreadyConverted State = "already_converted"
	StatePartial          State = "partial"
	StateUnconverted      State = "unconverted"
)

// Action selects how a partial directory is brought up to date.
type Action string

const (
	// ActionNone means nothing needs to happen.
	ActionNone Action = ""
	// ActionMoveOnly relocates stray .webp files; nothing is re-encoded.
	ActionMoveOnly Action = "move_only"
	// ActionConvertThenMove encodes the missing images and then relocates them.
	ActionConvertThenMove Action = "convert_then_move"
)

// ConversionStatus is the per-image outcome of a conversion attempt.
type ConversionStatus string

const (
	ConversionNone    ConversionStatus = "none"
	ConversionDone    ConversionStatus = "converted"
	ConversionSkipped ConversionStatus = "skipped"
	ConversionFailed  ConversionStatus = "failed"
)
