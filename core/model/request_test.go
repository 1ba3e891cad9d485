package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceType(t *testing.T) {
	st, err := ParseServiceType("Flat-Tyre")
	require.NoError(t, err)
	assert.Equal(t, ServiceFlatTyre, st)

	st, err = ParseServiceType("other")
	require.NoError(t, err)
	assert.Equal(t, ServiceOtherCarProblems, st)

	_, err = ParseServiceType("helicopter")
	assert.ErrorIs(t, err, ErrInvalidServiceType)
}

func TestServiceRequestTerminal(t *testing.T) {
	cases := []struct {
		req      ServiceRequest
		terminal bool
	}{
		{ServiceRequest{Status: StatusPending}, false},
		{ServiceRequest{Status: StatusQuoteReceived}, false},
		{ServiceRequest{Status: StatusAccepted}, false},
		{ServiceRequest{Status: StatusDeclined}, false},
		{ServiceRequest{Status: StatusDeclined, Reason: "none left"}, true},
		{ServiceRequest{Status: StatusCompleted}, true},
		{ServiceRequest{Status: StatusCancelled}, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.terminal, c.req.Terminal(), "%s/%q", c.req.Status, c.req.Reason)
		assert.Equal(t, !c.terminal, c.req.Active())
	}
}

func TestServiceRequestCloneIsDeep(t *testing.T) {
	q := 42.0
	r := ServiceRequest{Quote: &q, Technician: &Technician{ID: "t1", Location: &Coordinate{Lat: 1}}}
	c := r.Clone()
	*c.Quote = 10
	c.Technician.Location.Lat = 5
	assert.Equal(t, 42.0, *r.Quote)
	assert.Equal(t, 1.0, r.Technician.Location.Lat)
	assert.Equal(t, "t1", c.TechnicianID())
	assert.Equal(t, "", ServiceRequest{}.TechnicianID())
}

func TestInterpolate(t *testing.T) {
	a := Coordinate{Lat: 42.0, Lng: 23.0}
	b := Coordinate{Lat: 42.01, Lng: 23.02}
	assert.Equal(t, a, Interpolate(a, b, 0))
	assert.Equal(t, b, Interpolate(a, b, 1))
	assert.Equal(t, b, Interpolate(a, b, 1.5))
	mid := Interpolate(a, b, 0.5)
	assert.InDelta(t, 42.005, mid.Lat, 1e-9)
	assert.InDelta(t, 23.01, mid.Lng, 1e-9)
}

func TestHaversine(t *testing.T) {
	sofia := Coordinate{Lat: 42.6977, Lng: 23.3219}
	plovdiv := Coordinate{Lat: 42.1354, Lng: 24.7453}
	d := Haversine(sofia, plovdiv)
	assert.InDelta(t, 132000, d, 3000)
	assert.Zero(t, Haversine(sofia, sofia))
}

func TestTransientDependencyError(t *testing.T) {
	base := errors.New("boom")
	err := Transient("directory load", base)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "directory load: boom", err.Error())
	assert.Nil(t, Transient("x", nil))
	assert.False(t, IsTransient(base))
	assert.ErrorIs(t, InvalidTransition("accept", StatusPending), ErrInvalidTransition)
}
