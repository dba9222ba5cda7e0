package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	midState  = State{SeatsLeft: 5, TimeRemaining: 2, BookingRate: Medium, CompetitorPrice: Low, Segment: Economy}
	nextState = State{SeatsLeft: 4, TimeRemaining: 1, BookingRate: High, CompetitorPrice: Medium, Segment: Business}
)

func TestQTableDefaultsToZero(t *testing.T) {
	q := NewQTable(3)
	for a := 0; a < 3; a++ {
		assert.Equal(t, 0.0, q.Get(midState, a))
	}
	assert.Equal(t, 0.0, q.MaxValue(midState))
	assert.Equal(t, 0, q.Argmax(midState))
	assert.False(t, q.Visited(midState))
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []float64{0, 0, 0}, q.Values(midState))
}

func TestQTableUpdateAppliesBellmanBackup(t *testing.T) {
	q := NewQTable(2)
	got := q.Update(midState, 1, 100, nextState, 0.15, 0.85)
	assert.InDelta(t, 15.0, got, 1e-12)
	assert.InDelta(t, 15.0, q.Get(midState, 1), 1e-12)

	q.Set(nextState, 0, 40)
	q.Set(nextState, 1, 20)
	// 15 + 0.5*(10 + 0.5*40 - 15) = 22.5
	got = q.Update(midState, 1, 10, nextState, 0.5, 0.5)
	assert.InDelta(t, 22.5, got, 1e-12)
}

func TestQTableUpdateWithMatchingBootstrapIsIdempotent(t *testing.T) {
	q := NewQTable(2)
	q.Set(midState, 0, 0.5)
	q.Set(nextState, 0, 0.25)
	q.Set(nextState, 1, 0.5)
	before := q.Get(midState, 0)
	after := q.Update(midState, 0, 0, nextState, 0.7, 1)
	assert.Equal(t, before, after)
}

func TestQTableNeverBootstrapsTerminalStates(t *testing.T) {
	soldOut := State{SeatsLeft: 0, TimeRemaining: 3, BookingRate: High, CompetitorPrice: High, Segment: Business}
	expired := State{SeatsLeft: 7, TimeRemaining: 0, BookingRate: Low, CompetitorPrice: Low, Segment: Economy}
	for _, terminal := range []State{soldOut, expired} {
		q := NewQTable(2)
		q.Set(terminal, 0, 1000)
		q.Set(terminal, 1, 2000)
		assert.Equal(t, 0.0, q.MaxValue(terminal))
		got := q.Update(midState, 0, 50, terminal, 0.2, 0.9)
		assert.InDelta(t, 0.2*50, got, 1e-12)
	}
}

func TestQTableStaysFinite(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	states := []State{midState, nextState,
		{SeatsLeft: 3, TimeRemaining: 1, BookingRate: Low, CompetitorPrice: High, Segment: Economy},
	}
	for _, gamma := range []float64{0, 0.85, 1} {
		for _, alpha := range []float64{0.01, 0.15, 1} {
			q := NewQTable(4)
			for i := 0; i < 20000; i++ {
				s := states[rng.Intn(len(states))]
				n := states[rng.Intn(len(states))]
				q.Update(s, rng.Intn(4), rng.Float64()*640, n, alpha, gamma)
			}
			for _, s := range states {
				for _, v := range q.Values(s) {
					require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "alpha=%v gamma=%v", alpha, gamma)
				}
			}
		}
	}
}

func TestQTableArgmaxBreaksTiesTowardLowestIndex(t *testing.T) {
	q := NewQTable(4)
	q.Set(midState, 1, 7)
	q.Set(midState, 3, 7)
	assert.Equal(t, 1, q.Argmax(midState))
	q.Set(midState, 3, 7.5)
	assert.Equal(t, 3, q.Argmax(midState))
}

func TestQTableStatesAreOrdered(t *testing.T) {
	q := NewQTable(1)
	q.Set(nextState, 0, 1)
	q.Set(midState, 0, 1)
	low := midState
	low.BookingRate = Low
	q.Set(low, 0, 1)
	assert.Equal(t, []State{low, midState, nextState}, q.States())
}

func TestMergeAverage(t *testing.T) {
	a := NewQTable(2)
	b := NewQTable(2)
	a.Set(midState, 0, 10)
	a.Set(midState, 1, 4)
	b.Set(midState, 0, 20)
	b.Set(nextState, 1, 6)

	merged := MergeAverage(a, b)
	assert.Equal(t, 2, merged.Len())
	assert.InDelta(t, 15.0, merged.Get(midState, 0), 1e-12)
	assert.InDelta(t, 2.0, merged.Get(midState, 1), 1e-12)
	assert.InDelta(t, 6.0, merged.Get(nextState, 1), 1e-12)
	assert.Equal(t, 10.0, a.Get(midState, 0), "inputs are left untouched")
}
