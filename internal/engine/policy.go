package engine

// Policy is a read-only greedy view over a trained Q-table.
//
// Visited states map to their highest-valued price, ties going to the lowest
// price. Unvisited states get the fallback action: the lowest price level for
// FallbackLowest, or the median level (lower median for an even count) for
// FallbackMedian.
type Policy struct {
	q           *QTable
	priceLevels []float64
	fallback    int
}

func NewPolicy(q *QTable, priceLevels []float64, fallback string) *Policy {
	p := &Policy{q: q, priceLevels: append([]float64(nil), priceLevels...)}
	if fallback == FallbackMedian && len(priceLevels) > 0 {
		p.fallback = (len(priceLevels) - 1) / 2
	}
	return p
}

// Action returns the greedy price index for state. ok is false when the
// fallback was used.
func (p *Policy) Action(state State) (action int, ok bool) {
	if !p.q.Visited(state) {
		return p.fallback, false
	}
	return p.q.Argmax(state), true
}

func (p *Policy) Price(state State) (float64, bool) {
	action, ok := p.Action(state)
	return p.priceLevels[action], ok
}

func (p *Policy) PriceLevels() []float64 {
	return append([]float64(nil), p.priceLevels...)
}

// Entry is one row of an extracted policy table.
type Entry struct {
	State   State
	Action  int
	Price   float64
	Value   float64
	Visited bool
}

// Entries evaluates the policy on the given states, in order.
func (p *Policy) Entries(states []State) []Entry {
	entries := make([]Entry, 0, len(states))
	for _, s := range states {
		action, ok := p.Action(s)
		entries = append(entries, Entry{
			State:   s,
			Action:  action,
			Price:   p.priceLevels[action],
			Value:   p.q.Get(s, action),
			Visited: ok,
		})
	}
	return entries
}

// Greedy evaluates the policy over every visited state.
func (p *Policy) Greedy() []Entry {
	return p.Entries(p.q.States())
}

// ExampleStates enumerates the categorical fields for a fixed time remaining
// and segment at a few inventory levels, from full down to one seat.
func ExampleStates(numSeats, timeRemaining int, segment Segment) []State {
	seats := exampleSeatLevels(numSeats)
	states := make([]State, 0, len(seats)*levelCount*levelCount)
	for _, s := range seats {
		for rate := Low; rate <= High; rate++ {
			for comp := Low; comp <= High; comp++ {
				states = append(states, State{
					SeatsLeft:       s,
					TimeRemaining:   timeRemaining,
					BookingRate:     rate,
					CompetitorPrice: comp,
					Segment:         segment,
				})
			}
		}
	}
	return states
}

func exampleSeatLevels(numSeats int) []int {
	var levels []int
	seen := make(map[int]bool)
	for _, frac := range []float64{1, 0.75, 0.5, 0.25} {
		n := int(float64(numSeats) * frac)
		if n < 1 || seen[n] {
			continue
		}
		seen[n] = true
		levels = append(levels, n)
	}
	if !seen[1] && numSeats >= 1 {
		levels = append(levels, 1)
	}
	return levels
}
