package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/roadside/core/clock"
	"github.com/kilianp07/roadside/core/factory"
	"github.com/kilianp07/roadside/core/model"
)

type countingDir struct {
	calls int
	pool  []model.Technician
	err   error
}

func (d *countingDir) Load(context.Context) ([]model.Technician, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.pool, nil
}

func TestCachedZeroTTLReloadsEveryCall(t *testing.T) {
	src := &countingDir{pool: []model.Technician{{ID: "t1"}}}
	c := NewCached(src, Policy{}, clock.NewManual(time.Unix(0, 0)), nil)
	for i := 0; i < 3; i++ {
		_, err := c.Load(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, src.calls)
}

func TestCachedTTL(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	src := &countingDir{pool: []model.Technician{{ID: "t1"}}}
	c := NewCached(src, Policy{TTL: time.Minute}, clk, nil)

	_, _ = c.Load(context.Background())
	clk.Advance(30 * time.Second)
	pool, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, pool, 1)
	assert.Equal(t, 1, src.calls)

	clk.Advance(time.Minute)
	_, _ = c.Load(context.Background())
	assert.Equal(t, 2, src.calls)

	c.Invalidate()
	_, _ = c.Load(context.Background())
	assert.Equal(t, 3, src.calls)
}

func TestCachedServeStale(t *testing.T) {
	src := &countingDir{pool: []model.Technician{{ID: "t1"}}}
	c := NewCached(src, Policy{ServeStale: true}, nil, nil)
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	src.err = errors.New("down")
	pool, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", pool[0].ID)

	strict := NewCached(src, Policy{}, nil, nil)
	_, err = strict.Load(context.Background())
	assert.Error(t, err)
}

func TestStaticReturnsCopy(t *testing.T) {
	s := Static{{ID: "t1", Name: "Ivan"}}
	pool, _ := s.Load(context.Background())
	pool[0].Name = "changed"
	assert.Equal(t, "Ivan", s[0].Name)
}

func TestFactoryStatic(t *testing.T) {
	d, err := New(factory.ModuleConfig{Type: "static", Conf: map[string]any{
		"technicians": []map[string]any{{"id": "t1", "name": "Maria"}},
	}})
	require.NoError(t, err)
	pool, err := d.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "Maria", pool[0].Name)

	_, err = New(factory.ModuleConfig{Type: "ldap"})
	assert.Error(t, err)
}
