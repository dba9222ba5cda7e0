package engine

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// QTable is a sparse action-value table. Rows exist only for visited states;
// every missing entry reads as 0.
type QTable struct {
	actions int
	data    map[State][]float64
}

func NewQTable(actions int) *QTable {
	return &QTable{actions: actions, data: make(map[State][]float64)}
}

func (q *QTable) Actions() int { return q.actions }

func (q *QTable) Get(state State, action int) float64 {
	row, ok := q.data[state]
	if !ok {
		return 0
	}
	return row[action]
}

func (q *QTable) Set(state State, action int, value float64) {
	q.row(state)[action] = value
}

func (q *QTable) row(state State) []float64 {
	row, ok := q.data[state]
	if !ok {
		row = make([]float64, q.actions)
		q.data[state] = row
	}
	return row
}

// MaxValue is the bootstrap term max_a Q(state, a). Terminal and unvisited
// states contribute 0.
func (q *QTable) MaxValue(state State) float64 {
	if state.Terminal() {
		return 0
	}
	row, ok := q.data[state]
	if !ok {
		return 0
	}
	return floats.Max(row)
}

// Argmax returns the lowest action index holding the maximum value, or 0 for
// an unvisited state.
func (q *QTable) Argmax(state State) int {
	row, ok := q.data[state]
	if !ok {
		return 0
	}
	return floats.MaxIdx(row)
}

// Visited reports whether state has a row.
func (q *QTable) Visited(state State) bool {
	_, ok := q.data[state]
	return ok
}

// Update applies the Q-learning backup
//
//	Q(s,a) += alpha * (reward + gamma*max_a' Q(s',a') - Q(s,a))
//
// and returns the new Q(s,a).
func (q *QTable) Update(state State, action int, reward float64, next State, alpha, gamma float64) float64 {
	row := q.row(state)
	current := row[action]
	target := reward + gamma*q.MaxValue(next)
	row[action] = current + alpha*(target-current)
	return row[action]
}

// Values returns a copy of the row for state, zeros if unvisited.
func (q *QTable) Values(state State) []float64 {
	values := make([]float64, q.actions)
	copy(values, q.data[state])
	return values
}

func (q *QTable) Len() int { return len(q.data) }

// States lists visited states in a stable order: most seats first, then most
// time remaining, then the categorical fields.
func (q *QTable) States() []State {
	states := make([]State, 0, len(q.data))
	for s := range q.data {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool {
		a, b := states[i], states[j]
		if a.SeatsLeft != b.SeatsLeft {
			return a.SeatsLeft > b.SeatsLeft
		}
		if a.TimeRemaining != b.TimeRemaining {
			return a.TimeRemaining > b.TimeRemaining
		}
		if a.BookingRate != b.BookingRate {
			return a.BookingRate < b.BookingRate
		}
		if a.CompetitorPrice != b.CompetitorPrice {
			return a.CompetitorPrice < b.CompetitorPrice
		}
		return a.Segment < b.Segment
	})
	return states
}

// MergeAverage combines independently trained tables. Each entry is the mean
// over the tables that visited its state.
func MergeAverage(tables ...*QTable) *QTable {
	if len(tables) == 0 {
		return NewQTable(0)
	}
	merged := NewQTable(tables[0].actions)
	counts := make(map[State]int)
	for _, t := range tables {
		for s, row := range t.data {
			floats.Add(merged.row(s), row)
			counts[s]++
		}
	}
	for s, n := range counts {
		floats.Scale(1/float64(n), merged.data[s])
	}
	return merged
}
