// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ImageOutcome is the recorded result of converting one source image.
type ImageOutcome struct {
	Stem     string           `json:"stem" yaml:"stem"`
	Source   string           `json:"source" yaml:"source"`
	Status   ConversionStatus `json:"status" yaml:"status"`
	BytesIn  int64            `json:"bytes_in" yaml:"bytes_in"`
	BytesOut int64            `json:"bytes_out" yaml:"bytes_out"`
	Duration time.Duration    `json:"duration" yaml:"duration"`
	Error    string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunReport summarizes one invocation against a directory.
type RunReport struct {
	// ID is a UUID assigned when the run starts.
	ID string `json:"id" yaml:"id"`

	// Dir is the absolute source directory.
	Dir string `json:"dir" yaml:"dir"`

	// OutputDir is the absolute output directory.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	State  State  `json:"state" yaml:"state"`
	Action Action `json:"action,omitempty" yaml:"action,omitempty"`

	// Missing lists stems that had no output when the run started.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`

	// Ambiguous lists stems shared by several source images.
	Ambiguous []string `json:"ambiguous,omitempty" yaml:"ambiguous,omitempty"`

	Converted  int `json:"converted" yaml:"converted"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Failed     int `json:"failed" yaml:"failed"`
	Moved      int `json:"moved" yaml:"moved"`
	Conflicts  int `json:"conflicts" yaml:"conflicts"`
	MoveFailed int `json:"move_failed" yaml:"move_failed"`

	BytesIn  int64 `json:"bytes_in" yaml:"bytes_in"`
	BytesOut int64 `json:"bytes_out" yaml:"bytes_out"`

	DryRun    bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`

	Images []ImageOutcome `json:"images,omitempty" yaml:"images,omitempty"`
}

// HasFailures reports whether any conversion or move failed.
func (r RunReport) HasFailures() bool {
	return r.Failed > 0 || r.MoveFailed > 0
}

// SpaceSaved returns the byte difference between converted inputs and their
// outputs. Positive means the outputs are smaller.
func (r RunReport) SpaceSaved() int64 {
	return r.BytesIn - r.BytesOut
}
