package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainParallelMergesWorkers(t *testing.T) {
	cfg := smallConfig()
	cfg.Episodes = 31
	cfg.Workers = 4

	res, err := Train(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, res.EpisodeRevenue, 31)
	assert.Equal(t, 31, res.Summary.Episodes)
	assert.Greater(t, res.QTable.Len(), 0)
	assert.Equal(t, len(cfg.PriceLevels), res.QTable.Actions())
}

func TestTrainParallelCapsWorkersAtEpisodes(t *testing.T) {
	cfg := smallConfig()
	cfg.Episodes = 2
	cfg.Workers = 8

	res, err := TrainParallel(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, res.EpisodeRevenue, 2)
}

func TestTrainParallelSurfacesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := smallConfig()
	cfg.Workers = 2

	_, err := TrainParallel(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainParallelValidatesFirst(t *testing.T) {
	cfg := smallConfig()
	cfg.Workers = 2
	cfg.LearningRate = 0
	_, err := TrainParallel(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestInterleaveOrdersByEpisodeIndex(t *testing.T) {
	got := interleave([][]int{{1, 4, 7}, {2, 5}, {3, 6, 8}})
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, got)
	assert.Empty(t, interleave[int](nil))
}

func TestTrainParallelRecentRevenueSpansWorkers(t *testing.T) {
	cfg := smallConfig()
	cfg.Episodes = 400
	cfg.Workers = 4

	res, err := TrainParallel(context.Background(), cfg)
	require.NoError(t, err)

	// Rebuild each worker's run; seeds are Seed+w and each trains 100 episodes.
	var tails []float64
	perWorker := make([][]float64, cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		wcfg := cfg
		wcfg.Workers = 1
		wcfg.Episodes = 100
		wcfg.Seed = cfg.Seed + int64(w)
		wres, err := Train(context.Background(), wcfg)
		require.NoError(t, err)
		perWorker[w] = wres.EpisodeRevenue
		tails = append(tails, wres.EpisodeRevenue[75:]...)
	}

	assert.Equal(t, interleave(perWorker), res.EpisodeRevenue)
	assert.InDelta(t, meanOf(tails), res.Summary.RecentMeanRevenue, 1e-6)
}

func TestTrainParallelReportsOneTerminalSnapshot(t *testing.T) {
	cfg := smallConfig()
	cfg.Episodes = 40
	cfg.Workers = 4
	var mu sync.Mutex
	counts := map[string]int{}
	var final Snapshot
	cfg.Observer = func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		counts[s.Status]++
		if s.Status != StatusEpisodeComplete {
			final = s
		}
	}

	res, err := TrainParallel(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 40, counts[StatusEpisodeComplete])
	assert.Equal(t, 1, counts[StatusDone])
	assert.Len(t, counts, 2)
	assert.Equal(t, 40, final.EpisodesCompleted)
	assert.Equal(t, res.QTable.Len(), final.StatesVisited)
}

func TestCancelledParallelRunReportsCancelledOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := smallConfig()
	cfg.Workers = 3
	var mu sync.Mutex
	var statuses []string
	cfg.Observer = func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, s.Status)
	}

	_, err := TrainParallel(ctx, cfg)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{StatusCancelled}, statuses)
}
