package engine

import (
	"gonum.org/v1/gonum/stat"
)

// recentWindow is the number of trailing episodes summarized separately to
// show where training ended up.
const recentWindow = 100

// Result is what a finished run leaves behind. Nothing in it is persisted.
type Result struct {
	QTable           *QTable
	Policy           *Policy
	EpisodeRevenue   []float64
	EpisodeSeatsSold []int
	Summary          Summary
}

type Summary struct {
	Episodes          int
	StatesVisited     int
	MeanRevenue       float64
	StdDevRevenue     float64
	RecentMeanRevenue float64
	MeanSeatsSold     float64
}

func newResult(cfg Config, q *QTable, revenues []float64, seatsSold []int) *Result {
	return &Result{
		QTable:           q,
		Policy:           NewPolicy(q, cfg.PriceLevels, cfg.PolicyFallback),
		EpisodeRevenue:   revenues,
		EpisodeSeatsSold: seatsSold,
		Summary:          summarize(q, revenues, seatsSold),
	}
}

func summarize(q *QTable, revenues []float64, seatsSold []int) Summary {
	s := Summary{Episodes: len(revenues), StatesVisited: q.Len()}
	if len(revenues) == 0 {
		return s
	}
	s.MeanRevenue = stat.Mean(revenues, nil)
	if len(revenues) > 1 {
		s.StdDevRevenue = stat.StdDev(revenues, nil)
	}
	recent := revenues
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	s.RecentMeanRevenue = stat.Mean(recent, nil)
	sold := make([]float64, len(seatsSold))
	for i, n := range seatsSold {
		sold[i] = float64(n)
	}
	s.MeanSeatsSold = meanOf(sold)
	return s
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
