package negotiation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/roadside/core/model"
	"github.com/kilianp07/roadside/core/pricing"
	"github.com/kilianp07/roadside/core/rng"
)

type failingTable struct{}

func (failingTable) BasePrice(model.ServiceType) (float64, error) {
	return 0, errors.New("pricing backend down")
}

func newNegotiator(t *testing.T, src rng.Source) *Negotiator {
	t.Helper()
	tbl, err := pricing.NewStaticTable(nil, 0)
	require.NoError(t, err)
	n, err := New(tbl, src, pricing.Config{}, nil)
	require.NoError(t, err)
	return n
}

func TestNewValidatesCollaborators(t *testing.T) {
	_, err := New(nil, rng.New(1), pricing.Config{}, nil)
	assert.Error(t, err)
	tbl, _ := pricing.NewStaticTable(nil, 0)
	_, err = New(tbl, nil, pricing.Config{}, nil)
	assert.Error(t, err)
	_, err = New(tbl, rng.New(1), pricing.Config{RevisionFactor: 2}, nil)
	assert.Error(t, err)
}

func TestGenerateQuoteJitterBounds(t *testing.T) {
	// rand 0 gives jitter -10, rand just below 1 gives +9.
	low := newNegotiator(t, rng.NewScripted(0)).GenerateQuote(model.ServiceFlatTyre, false)
	assert.Equal(t, 30.0, low.Amount)
	assert.Equal(t, 40.0, low.Base)

	high := newNegotiator(t, rng.NewScripted(0.999)).GenerateQuote(model.ServiceFlatTyre, false)
	assert.Equal(t, 49.0, high.Amount)

	mid := newNegotiator(t, rng.NewScripted(0.5)).GenerateQuote(model.ServiceTowTruck, false)
	assert.Equal(t, 100.0, mid.Amount)
}

func TestGenerateQuoteFloor(t *testing.T) {
	tbl, err := pricing.NewStaticTable(map[string]float64{"out-of-fuel": 12}, 0)
	require.NoError(t, err)
	n, err := New(tbl, rng.NewScripted(0), pricing.Config{}, nil)
	require.NoError(t, err)
	q := n.GenerateQuote(model.ServiceOutOfFuel, false)
	assert.Equal(t, 20.0, q.Amount)
	q = n.GenerateQuote(model.ServiceOutOfFuel, true)
	assert.Equal(t, 20.0, q.Amount)
}

func TestRevisedQuoteDiscountsFreshBase(t *testing.T) {
	src := rng.New(42)
	n := newNegotiator(t, src)
	for i := 0; i < 500; i++ {
		q := n.GenerateQuote(model.ServiceEmergency, true)
		assert.True(t, q.Revised)
		assert.GreaterOrEqual(t, q.Amount, 20.0)
		assert.LessOrEqual(t, q.Amount, 0.8*q.Raw+0.005)
		assert.LessOrEqual(t, q.Amount, q.Raw)
		assert.GreaterOrEqual(t, q.Raw, 70.0)
		assert.Less(t, q.Raw, 90.0)
	}
}

func TestRevisedRangeForFlatTyre(t *testing.T) {
	n := newNegotiator(t, rng.New(3))
	for i := 0; i < 500; i++ {
		q := n.GenerateQuote(model.ServiceFlatTyre, true)
		assert.GreaterOrEqual(t, q.Amount, 24.0)
		assert.LessOrEqual(t, q.Amount, 39.2)
	}
}

func TestGenerateQuotePricingFailureUsesDefault(t *testing.T) {
	n, err := New(failingTable{}, rng.NewScripted(0.5), pricing.Config{}, nil)
	require.NoError(t, err)
	q := n.GenerateQuote(model.ServiceSupport, false)
	assert.Equal(t, 50.0, q.Base)
	assert.Equal(t, 50.0, q.Amount)
}

func TestOnDeclineTwoStrikes(t *testing.T) {
	n := newNegotiator(t, rng.New(1))
	s := NewSession()

	assert.Equal(t, DecisionRevise, n.OnDecline(s, "t1"))
	assert.Equal(t, 1, s.DeclineCount)
	assert.True(t, s.HasReceivedRevision)
	assert.True(t, s.AwaitingRevision())
	assert.False(t, s.Excluded("t1"))

	assert.Equal(t, DecisionRematch, n.OnDecline(s, "t1"))
	assert.Zero(t, s.DeclineCount)
	assert.False(t, s.HasReceivedRevision)
	assert.True(t, s.Excluded("t1"))

	assert.Equal(t, DecisionRevise, n.OnDecline(s, "t2"))
	assert.Equal(t, DecisionRematch, n.OnDecline(s, "t2"))
	assert.Equal(t, []string{"t1", "t2"}, s.BlacklistIDs())
}

func TestSessionBlacklistIsCopy(t *testing.T) {
	s := NewSession()
	s.Exclude("a", "", "b")
	bl := s.Blacklist()
	delete(bl, "a")
	assert.True(t, s.Excluded("a"))
	assert.Len(t, s.BlacklistIDs(), 2)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "revise", DecisionRevise.String())
	assert.Equal(t, "rematch", DecisionRematch.String())
	assert.Equal(t, "none", DecisionNone.String())
}

func TestFormatAmount(t *testing.T) {
	n := newNegotiator(t, rng.New(1))
	assert.Equal(t, "32.50 BGN", n.FormatAmount(32.5))
	assert.Equal(t, "BGN", n.Currency())
}

func TestValidateManualQuote(t *testing.T) {
	n := newNegotiator(t, rng.New(1))
	assert.Equal(t, 20.0, n.Minimum())

	prior := 40.0
	cases := []struct {
		name     string
		amount   float64
		previous *float64
		ok       bool
	}{
		{"first quote", 55, nil, true},
		{"at floor", 20, nil, true},
		{"below floor", 19.99, nil, false},
		{"negative", -1, nil, false},
		{"revision below prior", 32, &prior, true},
		{"revision equal to prior", 40, &prior, true},
		{"revision above prior", 40.5, &prior, false},
		{"revision below floor", 15, &prior, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := n.Validate(tc.amount, tc.previous)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, model.ErrInvalidQuote)
		})
	}
}
