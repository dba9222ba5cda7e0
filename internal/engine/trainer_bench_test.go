package engine

import (
	"context"
	"testing"
)

func benchmarkEpisodes(b *testing.B, cfg Config) {
	for i := 0; i < b.N; i++ {
		trainer, err := NewTrainer(cfg)
		if err != nil {
			b.Fatal(err)
		}
		for range trainer.Run(context.Background()) {
		}
	}
}

func BenchmarkEpisodeDefaultMarket(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Episodes = 1
	cfg.Seed = 99
	benchmarkEpisodes(b, cfg)
}

func BenchmarkEpisodeWithTrajectory(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Episodes = 1
	cfg.Seed = 99
	cfg.KeepTrajectory = true
	benchmarkEpisodes(b, cfg)
}

func BenchmarkTrainParallel(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Episodes = 400
	cfg.Workers = 4
	cfg.Seed = 99
	for i := 0; i < b.N; i++ {
		if _, err := TrainParallel(context.Background(), cfg); err != nil {
			b.Fatal(err)
		}
	}
}
