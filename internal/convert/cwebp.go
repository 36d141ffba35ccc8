// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/image/webp"

	"github.com/pdiddy/webpify/internal/encoder"
)

// CwebpConverter converts images by invoking the cwebp encoder through an
// encoder.Runtime injected at construction time.
type CwebpConverter struct {
	runtime encoder.Runtime
}

// NewCwebpConverter creates a converter backed by rt.
func NewCwebpConverter(rt encoder.Runtime) *CwebpConverter {
	return &CwebpConverter{runtime: rt}
}

// Convert runs the encoder and then checks that the produced file decodes
// as a WebP image. A zero exit status with an unreadable output counts as a
// failure.
func (c *CwebpConverter) Convert(ctx context.Context, inputPath, outputPath string, quality int) error {
	if err := c.runtime.Encode(ctx, inputPath, outputPath, quality); err != nil {
		return err
	}
	return verifyWebP(outputPath)
}

func verifyWebP(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("encoder reported success but produced no output: %w", err)
	}
	defer f.Close()

	cfg, err := webp.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("output %s is not a valid WebP image: %w", path, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("output %s has empty dimensions", path)
	}
	return nil
}
