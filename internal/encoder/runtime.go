// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package encoder locates and runs the external WebP encoder binary.
// Command execution goes through a small executor interface so callers and
// tests never need a real cwebp on PATH.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrEncoderNotFound is returned by Detect when the encoder binary is not
// on PATH or does not respond to a version probe.
var ErrEncoderNotFound = errors.New("encoder not found")

// EncodeError describes a failed encoder invocation. Stderr holds whatever
// the encoder printed before exiting.
type EncodeError struct {
	Input  string
	Stderr string
	Err    error
}

func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("encoding %s: %v", e.Input, e.Err)
	if s := lastLine(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Runtime runs a WebP encoder.
type Runtime interface {
	// Name returns the binary name as configured (e.g. "cwebp").
	Name() string

	// Path returns the resolved binary path.
	Path() string

	// Version returns the encoder's self-reported version string.
	Version(ctx context.Context) (string, error)

	// Encode converts input to a WebP file at output using the given
	// quality (0-100).
	Encode(ctx context.Context, input, output string, quality int) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunCaptured(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunCaptured(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// cwebp implements Runtime for the libwebp command-line encoder.
type cwebp struct {
	name string
	path string
	exec executor
}

func (c *cwebp) Name() string { return c.name }

func (c *cwebp) Path() string { return c.path }

func (c *cwebp) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := c.exec.RunCaptured(ctx, c.path, "-version")
	if err != nil {
		return "", &EncodeError{Input: "-version", Stderr: string(stderr), Err: err}
	}
	return strings.TrimSpace(string(stdout)), nil
}

func (c *cwebp) Encode(ctx context.Context, input, output string, quality int) error {
	args := []string{"-quiet", "-q", strconv.Itoa(quality), input, "-o", output}
	_, stderr, err := c.exec.RunCaptured(ctx, c.path, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &EncodeError{Input: input, Stderr: string(stderr), Err: err}
	}
	return nil
}

var defaultExec = &osExecutor{}

// Detect resolves bin (a name on PATH or an explicit path) and verifies it
// answers -version.
func Detect(ctx context.Context, bin string) (Runtime, error) {
	return detect(ctx, defaultExec, bin)
}

func detect(ctx context.Context, exec executor, bin string) (Runtime, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not on PATH (install libwebp tools)", ErrEncoderNotFound, bin)
	}

	rt := &cwebp{name: bin, path: path, exec: exec}
	if _, err := rt.Version(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s did not respond to -version: %v", ErrEncoderNotFound, path, err)
	}
	return rt, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
