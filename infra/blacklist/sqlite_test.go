package blacklist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/kilianp07/roadside/core/blacklist"
	"github.com/kilianp07/roadside/core/factory"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return ts }
	require.NoError(t, s.Add(ctx, "r1", "t1", "u1"))
	s.now = func() time.Time { return ts.Add(time.Second) }
	require.NoError(t, s.Add(ctx, "r1", "t2", "u1"))
	require.NoError(t, s.Add(ctx, "r1", "t1", "someone-else"))
	require.NoError(t, s.Add(ctx, "r2", "t3", "u2"))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"t1": {}, "t2": {}}, got)

	entries, err := s.Entries(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "t1", entries[0].TechnicianID)
	assert.Equal(t, "u1", entries[0].ActorID)
	assert.Equal(t, ts, entries[0].CreatedAt)

	empty, err := s.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.db")
	ctx := context.Background()
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "r1", "t1", "u1"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Contains(t, got, "t1")
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.Error(t, err)
}

func TestFactoryRegistersSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bl.db")
	s, err := core.New(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": path}})
	require.NoError(t, err)
	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
	_ = s.(*SQLiteStore).Close()

	_, err = core.New(factory.ModuleConfig{Type: "redis", Conf: map[string]any{}})
	assert.Error(t, err)
	_, err = core.New(factory.ModuleConfig{Type: "postgres", Conf: map[string]any{}})
	assert.Error(t, err)
}
