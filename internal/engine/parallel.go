package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Train runs cfg end to end, sequentially for a single worker and through
// TrainParallel otherwise.
func Train(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Workers > 1 {
		return TrainParallel(ctx, cfg)
	}
	t, err := NewTrainer(cfg)
	if err != nil {
		return nil, err
	}
	return t.Train(ctx)
}

// TrainParallel splits the episodes across cfg.Workers independent trainers,
// each with its own Q-table and seed (Seed+worker), and averages the tables
// once all of them finish. Worker w trains episodes/workers episodes, the
// first episodes%workers workers one more.
//
// Per-episode series in the Result are ordered by episode index across
// workers. cfg.Observer sees every worker episode and one terminal snapshot
// for the whole run.
func TrainParallel(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers > cfg.Episodes {
		workers = cfg.Episodes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	trainers := make([]*Trainer, workers)
	for w := range trainers {
		wcfg := cfg
		wcfg.Workers = 1
		wcfg.Episodes = cfg.Episodes / workers
		if w < cfg.Episodes%workers {
			wcfg.Episodes++
		}
		wcfg.Seed = normalizeSeed(cfg.Seed) + int64(w)
		wcfg.Logger = logger.With(zap.Int("worker", w))
		wcfg.Observer = episodesOnly(cfg.Observer)
		t, err := NewTrainer(wcfg)
		if err != nil {
			return nil, err
		}
		trainers[w] = t
	}

	g, gctx := errgroup.WithContext(ctx)
	for w, t := range trainers {
		w, t := w, t
		g.Go(func() error {
			if _, err := t.Train(gctx); err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		status := StatusFailed
		if ctx.Err() != nil {
			status = StatusCancelled
		}
		notify(cfg.Observer, combinedSnapshot(status, trainers, 0))
		return nil, err
	}

	tables := make([]*QTable, len(trainers))
	revenues := make([][]float64, len(trainers))
	seatsSold := make([][]int, len(trainers))
	for i, t := range trainers {
		tables[i] = t.qvalues
		revenues[i] = t.revenues
		seatsSold[i] = t.seatsSold
	}
	merged := MergeAverage(tables...)
	logger.Info("merged worker tables", zap.Int("workers", workers), zap.Int("states_visited", merged.Len()))
	notify(cfg.Observer, combinedSnapshot(StatusDone, trainers, merged.Len()))
	return newResult(cfg, merged, interleave(revenues), interleave(seatsSold)), nil
}

// episodesOnly forwards per-episode snapshots from a worker; the run's single
// terminal snapshot comes from TrainParallel itself.
func episodesOnly(observer func(Snapshot)) func(Snapshot) {
	if observer == nil {
		return nil
	}
	return func(s Snapshot) {
		if s.Status == StatusEpisodeComplete {
			observer(s)
		}
	}
}

func notify(observer func(Snapshot), s Snapshot) {
	if observer != nil {
		observer(s)
	}
}

// combinedSnapshot sums the workers' counters. Call only after every worker
// has returned.
func combinedSnapshot(status string, trainers []*Trainer, statesVisited int) Snapshot {
	s := Snapshot{Status: status, StatesVisited: statesVisited}
	for _, t := range trainers {
		s.EpisodesCompleted += t.episodesCompleted
		s.TotalRevenue += t.totalRevenue
		s.TotalSteps += t.totalSteps
		s.ExplorationRate += t.epsilon / float64(len(trainers))
	}
	s.Episode = s.EpisodesCompleted
	return s
}

// interleave orders per-worker series by episode index, so entry k of every
// worker precedes entry k+1 of any worker.
func interleave[T any](series [][]T) []T {
	var out []T
	for k := 0; ; k++ {
		added := false
		for _, values := range series {
			if k < len(values) {
				out = append(out, values[k])
				added = true
			}
		}
		if !added {
			return out
		}
	}
}
