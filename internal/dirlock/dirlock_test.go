// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dirlock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), lock.Path())
	assert.FileExists(t, lock.Path())

	_, err = Acquire(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, filepath.Join(dir, FileName))

	again, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquire_MissingDirectory(t *testing.T) {
	_, err := Acquire(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
