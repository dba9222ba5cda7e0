package engine

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
)

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

const (
	StatusEpisodeComplete = "episode_complete"
	StatusDone            = "done"
	StatusCancelled       = "cancelled"
	StatusFailed          = "failed"
)

// Transition is one pricing decision inside an episode.
type Transition struct {
	State     State
	Action    int
	Price     float64
	Reward    float64
	Sold      bool
	Explored  bool
	NextState State
}

// Snapshot reports training progress after an episode, or the terminal status
// of a run.
type Snapshot struct {
	Episode           int
	EpisodeSteps      int
	EpisodeRevenue    float64
	SeatsSold         int
	Explorations      int
	ExplorationRate   float64
	StatesVisited     int
	EpisodesCompleted int
	TotalRevenue      float64
	TotalSteps        int
	Trajectory        []Transition
	Status            string
}

// Trainer runs Q-learning episodes against the market model. A Trainer owns
// its Q-table and random source and is not safe for concurrent use.
type Trainer struct {
	cfg               Config
	logger            *zap.Logger
	rng               *rand.Rand
	market            *Market
	discretizer       Discretizer
	agent             *epsilonGreedyAgent
	qvalues           *QTable
	epsilon           float64
	episodesCompleted int
	totalRevenue      float64
	totalSteps        int
	revenues          []float64
	seatsSold         []int
	err               error
}

// NewTrainer validates cfg and prepares an empty Q-table.
func NewTrainer(cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.PriceLevels = append([]float64(nil), cfg.PriceLevels...)
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := rand.New(rand.NewSource(normalizeSeed(cfg.Seed)))
	qvalues := NewQTable(len(cfg.PriceLevels))
	return &Trainer{
		cfg:         cfg,
		logger:      logger,
		rng:         rng,
		market:      newMarket(cfg, rng),
		discretizer: NewDiscretizer(cfg),
		agent:       newEpsilonGreedyAgent(rng, qvalues, cfg.ExplorationRate),
		qvalues:     qvalues,
		epsilon:     cfg.ExplorationRate,
		revenues:    make([]float64, 0, cfg.Episodes),
		seatsSold:   make([]int, 0, cfg.Episodes),
	}, nil
}

func normalizeSeed(seed int64) int64 {
	if seed == 0 {
		return 1
	}
	return seed
}

// Run trains for cfg.Episodes episodes and streams a snapshot after each one,
// followed by a final done, cancelled or failed snapshot. Cancellation is
// honoured between episodes only. Err reports the failure once the channel is
// closed.
func (t *Trainer) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for episode := 1; episode <= t.cfg.Episodes; episode++ {
			select {
			case <-ctx.Done():
				t.err = ctx.Err()
				out <- t.snapshot(StatusCancelled, episode-1)
				return
			default:
			}
			t.agent.setEpsilon(t.epsilon)
			snap, err := t.runEpisode(episode)
			if err != nil {
				t.err = err
				t.logger.Error("training aborted", zap.Int("episode", episode), zap.Error(err))
				out <- t.snapshot(StatusFailed, episode)
				return
			}
			out <- snap
			t.logProgress(episode)
			if t.cfg.ExplorationDecay > 0 {
				t.epsilon = maxFloat(t.cfg.ExplorationMin, t.epsilon*t.cfg.ExplorationDecay)
			}
		}
		out <- t.snapshot(StatusDone, t.cfg.Episodes)
	}()
	return out
}

// Err returns the error that stopped Run, if any.
func (t *Trainer) Err() error { return t.err }

// Train drains Run, handing each snapshot to cfg.Observer, and assembles the
// Result.
func (t *Trainer) Train(ctx context.Context) (*Result, error) {
	for snap := range t.Run(ctx) {
		if t.cfg.Observer != nil {
			t.cfg.Observer(snap)
		}
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.result(), nil
}

func (t *Trainer) QTable() *QTable { return t.qvalues }

func (t *Trainer) runEpisode(episode int) (Snapshot, error) {
	seatsLeft := t.cfg.NumSeats
	timeRemaining := t.cfg.TimeHorizon
	sold := 0
	obs, err := t.observe(seatsLeft, timeRemaining, sold)
	if err != nil {
		return Snapshot{}, fmt.Errorf("episode %d: %w", episode, err)
	}
	state := t.discretizer.State(obs)

	var trajectory []Transition
	if t.cfg.KeepTrajectory {
		trajectory = make([]Transition, 0, t.cfg.TimeHorizon)
	}
	steps := 0
	explorations := 0
	revenue := 0.0
	for !state.Terminal() {
		action, explored := t.agent.act(state)
		price := t.cfg.PriceLevels[action]
		probability, err := t.market.DemandProbability(price, obs.Segment, obs.CompetitorPrice)
		if err != nil {
			return Snapshot{}, fmt.Errorf("episode %d step %d: %w", episode, steps+1, err)
		}
		reward := 0.0
		purchased := t.market.Purchase(probability)
		if purchased {
			reward = price
			seatsLeft--
			sold++
		}
		timeRemaining--
		nextObs, err := t.observe(seatsLeft, timeRemaining, sold)
		if err != nil {
			return Snapshot{}, fmt.Errorf("episode %d step %d: %w", episode, steps+1, err)
		}
		next := t.discretizer.State(nextObs)
		t.qvalues.Update(state, action, reward, next, t.cfg.LearningRate, t.cfg.DiscountFactor)
		if t.cfg.KeepTrajectory {
			trajectory = append(trajectory, Transition{
				State:     state,
				Action:    action,
				Price:     price,
				Reward:    reward,
				Sold:      purchased,
				Explored:  explored,
				NextState: next,
			})
		}
		if explored {
			explorations++
		}
		revenue += reward
		steps++
		state, obs = next, nextObs
	}

	t.totalRevenue += revenue
	t.totalSteps += steps
	t.episodesCompleted++
	t.revenues = append(t.revenues, revenue)
	t.seatsSold = append(t.seatsSold, sold)

	snap := t.snapshot(StatusEpisodeComplete, episode)
	snap.EpisodeSteps = steps
	snap.EpisodeRevenue = revenue
	snap.SeatsSold = sold
	snap.Explorations = explorations
	snap.Trajectory = trajectory
	return snap, nil
}

// observe samples the raw market reading for the customer arriving with
// timeRemaining steps left.
func (t *Trainer) observe(seatsLeft, timeRemaining, sold int) (Observation, error) {
	elapsed := t.cfg.TimeHorizon - timeRemaining
	rate, err := t.market.BookingRate(sold, elapsed)
	if err != nil {
		return Observation{}, err
	}
	competitor, err := t.market.CompetitorPrice(elapsed)
	if err != nil {
		return Observation{}, err
	}
	segment, err := t.market.CustomerSegment(elapsed, seatsLeft)
	if err != nil {
		return Observation{}, err
	}
	return Observation{
		SeatsLeft:       seatsLeft,
		TimeRemaining:   timeRemaining,
		BookingRate:     rate,
		CompetitorPrice: competitor,
		Segment:         segment,
	}, nil
}

func (t *Trainer) logProgress(episode int) {
	if t.cfg.LogInterval <= 0 || episode%t.cfg.LogInterval != 0 {
		return
	}
	window := t.revenues[len(t.revenues)-t.cfg.LogInterval:]
	t.logger.Info("training progress",
		zap.Int("episode", episode),
		zap.Int("episodes", t.cfg.Episodes),
		zap.Float64("revenue", t.revenues[len(t.revenues)-1]),
		zap.Float64("window_mean_revenue", meanOf(window)),
		zap.Int("states_visited", t.qvalues.Len()),
		zap.Float64("exploration_rate", t.epsilon),
	)
}

func (t *Trainer) snapshot(status string, episode int) Snapshot {
	return Snapshot{
		Episode:           episode,
		ExplorationRate:   t.epsilon,
		StatesVisited:     t.qvalues.Len(),
		EpisodesCompleted: t.episodesCompleted,
		TotalRevenue:      t.totalRevenue,
		TotalSteps:        t.totalSteps,
		Status:            status,
	}
}

func (t *Trainer) result() *Result {
	return newResult(t.cfg, t.qvalues, t.revenues, t.seatsSold)
}
