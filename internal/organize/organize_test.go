// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package organize

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/webpify/internal/reconcile"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestMoveStray_All(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.png", "png")
	writeFile(t, dir, "a.webp", "webp-a")
	writeFile(t, dir, "b.webp", "webp-b")
	out := filepath.Join(dir, "webp")

	var log bytes.Buffer
	res, err := MoveStray(dir, out, nil, &log)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(out, "a.webp"), filepath.Join(out, "b.webp")}, res.Moved)
	assert.Empty(t, res.Conflicts)
	assert.NoError(t, res.Err())

	data, err := os.ReadFile(filepath.Join(out, "a.webp"))
	require.NoError(t, err)
	assert.Equal(t, "webp-a", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "a.webp"))
	assert.FileExists(t, filepath.Join(dir, "a.png"), "source images must stay")
	assert.Contains(t, log.String(), "moved:")
}

func TestMoveStray_Filtered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.webp", "x")
	writeFile(t, dir, "y.webp", "y")
	out := filepath.Join(dir, "webp")

	res, err := MoveStray(dir, out, []string{"y"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "y.webp")}, res.Moved)
	assert.FileExists(t, filepath.Join(dir, "x.webp"))
}

func TestMoveStray_Conflict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.webp", "new")
	writeFile(t, dir, "webp/x.webp", "old")
	out := filepath.Join(dir, "webp")

	var log bytes.Buffer
	res, err := MoveStray(dir, out, nil, &log)
	require.NoError(t, err)
	assert.Empty(t, res.Moved)
	assert.Equal(t, []string{filepath.Join(dir, "x.webp")}, res.Conflicts)

	data, err := os.ReadFile(filepath.Join(out, "x.webp"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data), "existing output must not be overwritten")
	assert.Contains(t, log.String(), "conflict:")
}

func TestMoveStray_NothingToMoveCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.png", "png")
	out := filepath.Join(dir, "webp")

	res, err := MoveStray(dir, out, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, res.Moved)
	assert.NoDirExists(t, out)
}

func TestMoveStray_MissingSource(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := MoveStray(dir, filepath.Join(dir, "webp"), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, reconcile.ErrDirectoryNotFound)
}

func TestMove_MissingSourceFile(t *testing.T) {
	dir := t.TempDir()
	err := Move(filepath.Join(dir, "gone.webp"), filepath.Join(dir, "dst.webp"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMoveFailed))
	var moveErr *MoveError
	require.True(t, errors.As(err, &moveErr))
	assert.Equal(t, filepath.Join(dir, "gone.webp"), moveErr.Src)
}

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.webp", "payload")
	dst := filepath.Join(dir, "dst.webp")

	require.NoError(t, copyVerified(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Destination already exists: O_EXCL refuses to clobber it.
	assert.Error(t, copyVerified(src, dst))
}
