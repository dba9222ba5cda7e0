package engine

import (
	"math"
	"math/rand"
	"strings"
)

type Segment int

const (
	Economy Segment = iota
	Business
)

const segmentCount = 2

func (s Segment) String() string {
	switch s {
	case Economy:
		return "Economy"
	case Business:
		return "Business"
	default:
		return "Unknown"
	}
}

func (s Segment) valid() bool { return s == Economy || s == Business }

// ParseSegment accepts "economy" or "business" in any case.
func ParseSegment(name string) (Segment, bool) {
	switch {
	case strings.EqualFold(name, "economy"):
		return Economy, true
	case strings.EqualFold(name, "business"):
		return Business, true
	}
	return Economy, false
}

// Demand curve constants. Economy customers react harder to price than
// Business customers once price exceeds about 0.18: the ratio of the two
// exponent terms is 2·price^0.4, so Business only drops faster on near-free
// fares.
const (
	baseDemand          = 0.5
	demandFloor         = 0.1
	competitorInfluence = 0.3
)

type segmentElasticity struct {
	sensitivity float64
	exponent    float64
}

var elasticities = [segmentCount]segmentElasticity{
	Economy:  {sensitivity: 0.002, exponent: 1.2},
	Business: {sensitivity: 0.001, exponent: 0.8},
}

// Segment mix: Business share grows as departure nears and as seats run out.
const (
	businessBase           = 0.2
	businessTimeWeight     = 0.4
	businessScarcityWeight = 0.3
)

// competitorNoiseClip bounds the competitor's perturbation to this many
// standard deviations.
const competitorNoiseClip = 2.0

// Market samples the per-step market conditions. It owns no state besides
// its parameters and the random source handed to it.
type Market struct {
	numSeats    int
	timeHorizon int
	minPrice    float64
	maxPrice    float64
	volatility  float64
	rng         *rand.Rand
}

// NewMarket validates cfg and binds the model to rng.
func NewMarket(cfg Config, rng *rand.Rand) (*Market, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newMarket(cfg, rng), nil
}

func newMarket(cfg Config, rng *rand.Rand) *Market {
	return &Market{
		numSeats:    cfg.NumSeats,
		timeHorizon: cfg.TimeHorizon,
		minPrice:    cfg.PriceLevels[0],
		maxPrice:    cfg.PriceLevels[len(cfg.PriceLevels)-1],
		volatility:  cfg.CompetitorVolatility,
		rng:         rng,
	}
}

// DemandProbability is the chance a customer of the given segment buys at
// price while the competitor charges competitorPrice. It is non-increasing in
// price and always within [0, 1].
func (m *Market) DemandProbability(price float64, segment Segment, competitorPrice float64) (float64, error) {
	const op = "demand probability"
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, domainErr(op, "price", price, "must be a finite non-negative number")
	}
	if math.IsNaN(competitorPrice) || math.IsInf(competitorPrice, 0) || competitorPrice < 0 {
		return 0, domainErr(op, "competitor_price", competitorPrice, "must be a finite non-negative number")
	}
	if !segment.valid() {
		return 0, domainErr(op, "segment", int(segment), "is not a known customer segment")
	}
	e := elasticities[segment]
	own := math.Exp(-e.sensitivity*math.Pow(price, e.exponent)) + demandFloor
	shift := 1 + competitorInfluence*math.Tanh(priceGap(price, competitorPrice))
	return clampFloat(baseDemand*own*shift, 0, 1), nil
}

// priceGap is the relative undercut in [-1, 1]: positive when price is below
// the competitor's, zero when both are free.
func priceGap(price, competitorPrice float64) float64 {
	scale := math.Max(price, competitorPrice)
	if scale == 0 {
		return 0
	}
	return (competitorPrice - price) / scale
}

// BookingRate is a normalized sales pace in [0, 1]. It grows with the share
// of sellable seats already sold and with log(1 + elapsed/horizon).
func (m *Market) BookingRate(seatsSold, timeElapsed int) (float64, error) {
	const op = "booking rate"
	if seatsSold < 0 || seatsSold > m.numSeats {
		return 0, domainErr(op, "seats_sold", seatsSold, "must be within [0, num_seats]")
	}
	if err := m.checkElapsed(op, timeElapsed); err != nil {
		return 0, err
	}
	capacity := m.numSeats
	if m.timeHorizon < capacity {
		capacity = m.timeHorizon
	}
	sold := math.Min(float64(seatsSold)/float64(capacity), 1)
	urgency := 1 + math.Log1p(float64(timeElapsed)/float64(m.timeHorizon))
	return sold * urgency / (1 + math.Ln2), nil
}

// CompetitorPrice drifts linearly from the cheapest to the dearest level
// over the horizon, plus truncated Gaussian noise, clipped to the price range.
func (m *Market) CompetitorPrice(timeElapsed int) (float64, error) {
	if err := m.checkElapsed("competitor price", timeElapsed); err != nil {
		return 0, err
	}
	span := m.maxPrice - m.minPrice
	baseline := m.minPrice + span*float64(timeElapsed)/float64(m.timeHorizon)
	sigma := m.volatility * span
	noise := clampFloat(m.rng.NormFloat64(), -competitorNoiseClip, competitorNoiseClip) * sigma
	return clampFloat(baseline+noise, m.minPrice, m.maxPrice), nil
}

// BusinessProbability is P(segment = Business); Economy takes the rest.
func (m *Market) BusinessProbability(timeElapsed, seatsLeft int) (float64, error) {
	const op = "customer segment"
	if err := m.checkElapsed(op, timeElapsed); err != nil {
		return 0, err
	}
	if seatsLeft < 0 || seatsLeft > m.numSeats {
		return 0, domainErr(op, "seats_left", seatsLeft, "must be within [0, num_seats]")
	}
	elapsed := float64(timeElapsed) / float64(m.timeHorizon)
	scarcity := 1 - float64(seatsLeft)/float64(m.numSeats)
	return businessBase + businessTimeWeight*elapsed + businessScarcityWeight*scarcity, nil
}

// CustomerSegment draws the segment of the customer arriving at this step.
func (m *Market) CustomerSegment(timeElapsed, seatsLeft int) (Segment, error) {
	p, err := m.BusinessProbability(timeElapsed, seatsLeft)
	if err != nil {
		return Economy, err
	}
	if m.rng.Float64() < p {
		return Business, nil
	}
	return Economy, nil
}

// Purchase draws a Bernoulli sale outcome.
func (m *Market) Purchase(probability float64) bool {
	return m.rng.Float64() < probability
}

func (m *Market) checkElapsed(op string, timeElapsed int) error {
	if timeElapsed < 0 || timeElapsed > m.timeHorizon {
		return domainErr(op, "time_elapsed", timeElapsed, "must be within [0, time_horizon]")
	}
	return nil
}
