// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/webpify/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.HistoryConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "h", dbFile)})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id, dir string, started time.Time) types.RunReport {
	return types.RunReport{
		ID:        id,
		Dir:       dir,
		OutputDir: filepath.Join(dir, "webp"),
		State:     types.StatePartial,
		Action:    types.ActionConvertThenMove,
		Converted: 1,
		Failed:    1,
		Moved:     1,
		BytesIn:   1000,
		BytesOut:  400,
		StartedAt: started,
		Elapsed:   1500 * time.Millisecond,
		Images: []types.ImageOutcome{
			{Stem: "a", Source: dir + "/a.png", Status: types.ConversionDone, BytesIn: 1000, BytesOut: 400, Duration: 120 * time.Millisecond},
			{Stem: "b", Source: dir + "/b.jpg", Status: types.ConversionFailed, Error: "exit status 255"},
		},
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, sampleRun("run-1", "/photos", base)))
	require.NoError(t, s.Record(ctx, sampleRun("run-2", "/photos", base.Add(time.Hour))))
	require.NoError(t, s.Record(ctx, sampleRun("run-3", "/other", base.Add(2*time.Hour))))

	runs, err := s.Recent(ctx, "/photos", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID, "newest first")
	assert.Equal(t, "run-1", runs[1].ID)

	r := runs[1]
	assert.Equal(t, types.StatePartial, r.State)
	assert.Equal(t, types.ActionConvertThenMove, r.Action)
	assert.Equal(t, 1500*time.Millisecond, r.Elapsed)
	assert.Equal(t, int64(600), r.SpaceSaved())
	assert.True(t, r.StartedAt.Equal(base))

	all, err := s.Recent(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.Recent(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-3", limited[0].ID)
}

func TestImages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, sampleRun("run-1", "/photos", time.Now())))

	imgs, err := s.Images(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "a", imgs[0].Stem)
	assert.Equal(t, 120*time.Millisecond, imgs[0].Duration)
	assert.Equal(t, types.ConversionFailed, imgs[1].Status)
	assert.Equal(t, "exit status 255", imgs[1].Error)
}

func TestRecord_DuplicateIDRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := sampleRun("dup", "/photos", time.Now())
	require.NoError(t, s.Record(ctx, run))
	require.Error(t, s.Record(ctx, run))

	imgs, err := s.Images(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, imgs, 2, "failed insert must not add image rows")
}

func TestRecord_MissingID(t *testing.T) {
	s := newTestStore(t)
	err := s.Record(context.Background(), types.RunReport{Dir: "/x"})
	assert.ErrorContains(t, err, "missing run id")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "webpify", "history.db"), p)
}
