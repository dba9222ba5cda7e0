package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"fare-rl-go/internal/config"
	"fare-rl-go/internal/engine"
	"fare-rl-go/internal/logging"
	"fare-rl-go/internal/metrics"
	"fare-rl-go/internal/report"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "farerl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

// flags that are not settings keys
var localFlags = map[string]bool{"config": true, "print-config": true, "help": true}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		printConfig bool
	)
	loader := config.NewLoader()
	d := engine.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "farerl",
		Short:         "Learn a dynamic airline pricing policy with tabular Q-learning",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(loader, cmd.Flags()); err != nil {
				return err
			}
			settings, err := loader.Load(configPath)
			if err != nil {
				return err
			}
			if printConfig {
				out, err := settings.YAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return train(cmd.Context(), cmd.OutOrStdout(), settings)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML settings file (default ./farerl.yaml when present)")
	f.BoolVar(&printConfig, "print-config", false, "print the effective settings and exit")

	f.Int("num-seats", d.NumSeats, "seats on the flight")
	f.Int("time-horizon", d.TimeHorizon, "decision steps per episode")
	f.StringSlice("price-levels", nil, "ascending candidate prices, e.g. 100,150,200 (default 100..640 step 20)")
	f.Float64("learning-rate", d.LearningRate, "Q-learning step size alpha in (0, 1]")
	f.Float64("discount-factor", d.DiscountFactor, "discount gamma in [0, 1]")
	f.Float64("exploration-rate", d.ExplorationRate, "epsilon-greedy exploration rate in [0, 1]")
	f.Float64("exploration-decay", d.ExplorationDecay, "multiply epsilon by this after each episode (0 disables)")
	f.Float64("exploration-min", d.ExplorationMin, "lower bound for a decaying epsilon")
	f.Int("episodes", d.Episodes, "training episodes")
	f.Int64("seed", d.Seed, "random seed (0 means 1)")
	f.Int("workers", d.Workers, "independent trainers whose tables are averaged")
	f.Float64("competitor-volatility", d.CompetitorVolatility, "competitor noise as a fraction of the price span")
	f.String("policy-fallback", d.PolicyFallback, "price for unvisited states: lowest or median")
	f.Int("log-interval", d.LogInterval, "episodes between progress logs (0 disables)")

	f.String("log-level", "info", "debug, info, warn or error")
	f.Bool("log-development", false, "human readable colored logs")
	f.String("chart-path", "", "write revenue and policy charts to this HTML file")
	f.String("metrics-path", "", "write Prometheus metrics to this textfile")
	f.Int("example-time-remaining", 0, "time remaining for the printed policy (default half the horizon)")
	f.String("example-segment", "economy", "segment for the printed policy: economy or business")
	f.String("color", config.ColorAuto, "colored output: auto, always or never")
	return cmd
}

// bindFlags exposes every settings flag to viper under its snake_case key, so
// a flag set on the command line beats env, file and defaults.
func bindFlags(loader *config.Loader, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || localFlags[f.Name] {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if bindErr := loader.Viper().BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

func train(ctx context.Context, stdout io.Writer, settings config.Settings) error {
	logger, err := logging.New(settings.LogLevel, settings.LogDevelopment)
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))
	defer func() { _ = logger.Sync() }()

	if dump, yerr := settings.YAML(); yerr == nil {
		logger.Debug("effective settings", zap.ByteString("yaml", dump))
	}

	recorder := metrics.NewRecorder()
	cfg := settings.Config
	cfg.Logger = logger
	cfg.Observer = recorder.Observe

	logger.Info("training started",
		zap.Int("episodes", cfg.Episodes),
		zap.Int("workers", cfg.Workers),
		zap.Int("price_levels", len(cfg.PriceLevels)),
		zap.Int64("seed", cfg.Seed),
	)
	res, trainErr := engine.Train(ctx, cfg)
	if settings.MetricsPath != "" {
		if werr := recorder.WriteTextfile(settings.MetricsPath); werr != nil {
			logger.Error("write metrics", zap.String("path", settings.MetricsPath), zap.Error(werr))
		} else {
			logger.Info("metrics written", zap.String("path", settings.MetricsPath))
		}
	}
	if trainErr != nil {
		return fmt.Errorf("train: %w", trainErr)
	}
	logger.Info("training finished",
		zap.Int("states_visited", res.Summary.StatesVisited),
		zap.Float64("mean_revenue", res.Summary.MeanRevenue),
		zap.Float64("recent_mean_revenue", res.Summary.RecentMeanRevenue),
	)

	color := settings.Color == config.ColorAlways
	if f, ok := stdout.(*os.File); ok {
		color = report.UseColor(settings.Color, f.Fd())
	}
	entries := res.Policy.Entries(engine.ExampleStates(cfg.NumSeats, settings.ExampleTimeRemaining, settings.Segment()))
	if err := report.PrintSummary(stdout, res.Summary, color); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(stdout, "\nPolicy at %d steps remaining (%s)\n", settings.ExampleTimeRemaining, settings.Segment()); err != nil {
		return err
	}
	if err := report.PrintPolicy(stdout, entries, color); err != nil {
		return err
	}

	if settings.ChartPath != "" {
		if err := writeCharts(settings.ChartPath, res, entries); err != nil {
			return err
		}
		logger.Info("charts written", zap.String("path", settings.ChartPath))
	}
	return nil
}

func writeCharts(path string, res *engine.Result, entries []engine.Entry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return report.WriteCharts(f, res.EpisodeRevenue, entries)
}
