package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := Open("sqlite", filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	assert.ErrorContains(t, err, `unsupported history driver "oracle"`)
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := &Run{
		Source:      "tasks.json",
		Milestone:   "Release",
		Relations:   "typed",
		TaskCount:   3,
		CriticalIDs: []string{"a", "b"},
		TotalDays:   4,
	}
	require.NoError(t, s.Record(ctx, run))
	assert.NotEmpty(t, run.ID, "ID is assigned")
	assert.False(t, run.CreatedAt.IsZero(), "CreatedAt is assigned")

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "tasks.json", got.Source)
	assert.Equal(t, "Release", got.Milestone)
	assert.Equal(t, "typed", got.Relations)
	assert.Equal(t, 3, got.TaskCount)
	assert.Equal(t, []string{"a", "b"}, got.CriticalIDs)
	assert.Equal(t, 4, got.TotalDays)
	assert.Empty(t, got.Error)
}

func TestRecord_FailedRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := &Run{Source: "-", Relations: "typed", Error: "cyclic dependency: a -> b -> a"}
	require.NoError(t, s.Record(ctx, run))

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "cyclic dependency: a -> b -> a", got.Error)
	assert.Empty(t, got.CriticalIDs)
	assert.NotNil(t, got.CriticalIDs)
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.Record(ctx, &Run{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Source:    id + ".json",
			Relations: "typed",
		}))
	}

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r1", runs[2].ID)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, []string{"r3", "r2"}, []string{limited[0].ID, limited[1].ID})
}

func TestRecord_DuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &Run{ID: "dup", Relations: "typed"}))
	assert.Error(t, s.Record(ctx, &Run{ID: "dup", Relations: "typed"}))
}
