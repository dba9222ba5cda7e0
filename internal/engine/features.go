package engine

// Level buckets a continuous signal into thirds.
type Level int

const (
	Low Level = iota
	Medium
	High
)

const levelCount = 3

func (l Level) String() string {
	switch l {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	default:
		return "Unknown"
	}
}

// State is the discretized market observation used as a Q-table key.
type State struct {
	SeatsLeft       int
	TimeRemaining   int
	BookingRate     Level
	CompetitorPrice Level
	Segment         Segment
}

// Terminal reports whether no further sale decision can be made.
func (s State) Terminal() bool {
	return s.SeatsLeft == 0 || s.TimeRemaining == 0
}

// Observation is the raw, undiscretized market reading for one step.
type Observation struct {
	SeatsLeft       int
	TimeRemaining   int
	BookingRate     float64
	CompetitorPrice float64
	Segment         Segment
}

// Discretizer maps observations onto States with fixed bucket boundaries.
// It holds no mutable state.
type Discretizer struct {
	rateBounds       [2]float64
	competitorBounds [2]float64
}

// NewDiscretizer derives bucket boundaries from cfg. Competitor boundaries
// are fractions of the configured price range.
func NewDiscretizer(cfg Config) Discretizer {
	lo := cfg.PriceLevels[0]
	span := cfg.PriceLevels[len(cfg.PriceLevels)-1] - lo
	return Discretizer{
		rateBounds: [2]float64{cfg.BookingRateBounds[0], cfg.BookingRateBounds[1]},
		competitorBounds: [2]float64{
			lo + span*cfg.CompetitorBounds[0],
			lo + span*cfg.CompetitorBounds[1],
		},
	}
}

func (d Discretizer) State(obs Observation) State {
	return State{
		SeatsLeft:       obs.SeatsLeft,
		TimeRemaining:   obs.TimeRemaining,
		BookingRate:     band(obs.BookingRate, d.rateBounds),
		CompetitorPrice: band(obs.CompetitorPrice, d.competitorBounds),
		Segment:         obs.Segment,
	}
}

// band puts a value equal to a boundary in the upper bucket.
func band(value float64, bounds [2]float64) Level {
	if value < bounds[0] {
		return Low
	}
	if value < bounds[1] {
		return Medium
	}
	return High
}
