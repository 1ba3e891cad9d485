package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/roadside/core/directory"
	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/rng"
)

var pool = directory.Static{
	{ID: "t1", Name: "Georgi"},
	{ID: "t2", Name: "Elena"},
	{ID: "t3", Name: "Nikolay"},
}

func set(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestFindUsesInjectedRandom(t *testing.T) {
	m, err := New(pool, rng.NewScripted(0.0, 0.5, 0.99), nil)
	require.NoError(t, err)
	var got []string
	for i := 0; i < 3; i++ {
		tech, err := m.Find(context.Background(), nil)
		require.NoError(t, err)
		got = append(got, tech.ID)
	}
	assert.Equal(t, []string{"t1", "t2", "t3"}, got)
}

func TestFindRespectsExclusions(t *testing.T) {
	m, err := New(pool, rng.New(9), nil)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		tech, err := m.Find(context.Background(), set("t1", "t3"))
		require.NoError(t, err)
		assert.Equal(t, "t2", tech.ID)
	}
}

func TestFindUniform(t *testing.T) {
	m, err := New(pool, rng.New(11), nil)
	require.NoError(t, err)
	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		tech, _ := m.Find(context.Background(), nil)
		counts[tech.ID]++
	}
	for _, id := range []string{"t1", "t2", "t3"} {
		assert.InDelta(t, 1000, counts[id], 150, id)
	}
}

func TestFindNotFound(t *testing.T) {
	m, err := New(pool, rng.New(1), nil)
	require.NoError(t, err)
	_, err = m.Find(context.Background(), set("t1", "t2", "t3"))
	assert.ErrorIs(t, err, model.ErrNoTechnicianAvailable)
	assert.False(t, model.IsTransient(err))

	empty, _ := New(directory.Static{}, rng.New(1), nil)
	_, err = empty.Find(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrNoTechnicianAvailable)
}

func TestFindDirectoryFailure(t *testing.T) {
	failing := directory.Func(func(context.Context) ([]model.Technician, error) {
		return nil, errors.New("connection refused")
	})
	m, err := New(failing, rng.New(1), nil)
	require.NoError(t, err)
	_, err = m.Find(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrNoTechnicianAvailable)
	assert.True(t, model.IsTransient(err))
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, rng.New(1), nil)
	assert.Error(t, err)
	_, err = New(pool, nil, nil)
	assert.Error(t, err)
}
