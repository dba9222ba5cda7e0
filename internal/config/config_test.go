package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-rl-go/internal/engine"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := NewLoader().Load("")
	require.NoError(t, err)

	d := engine.DefaultConfig()
	assert.Equal(t, d.NumSeats, s.NumSeats)
	assert.Equal(t, d.TimeHorizon, s.TimeHorizon)
	assert.Equal(t, d.PriceLevels, s.PriceLevels)
	assert.Equal(t, d.LearningRate, s.LearningRate)
	assert.Equal(t, d.DiscountFactor, s.DiscountFactor)
	assert.Equal(t, d.ExplorationRate, s.ExplorationRate)
	assert.Equal(t, d.Episodes, s.Episodes)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, ColorAuto, s.Color)
	assert.Equal(t, 6, s.ExampleTimeRemaining)
	assert.Equal(t, engine.Economy, s.Segment())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, "run.yaml", `
num_seats: 40
time_horizon: 8
price_levels: [80, 120, 160]
episodes: 300
example_segment: business
policy_fallback: median
`)
	t.Setenv("FARERL_EPISODES", "750")
	t.Setenv("FARERL_LEARNING_RATE", "0.3")

	s, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, s.NumSeats)
	assert.Equal(t, 8, s.TimeHorizon)
	assert.Equal(t, []float64{80, 120, 160}, s.PriceLevels)
	assert.Equal(t, 750, s.Episodes)
	assert.Equal(t, 0.3, s.LearningRate)
	assert.Equal(t, engine.FallbackMedian, s.PolicyFallback)
	assert.Equal(t, engine.Business, s.Segment())
	assert.Equal(t, 4, s.ExampleTimeRemaining)
}

func TestLoadPriceLevelsFromEnv(t *testing.T) {
	t.Setenv("FARERL_PRICE_LEVELS", "50,75,125")
	s, err := NewLoader().Load("")
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 75, 125}, s.PriceLevels)
}

func TestLoadExplicitOverrideWins(t *testing.T) {
	path := writeFile(t, "run.yaml", "num_seats: 40\n")
	l := NewLoader()
	l.Viper().Set("num_seats", 12)
	s, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, s.NumSeats)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"negative seats":   {"num_seats: -1\n", "num_seats"},
		"empty prices":     {"price_levels: []\n", "price_levels"},
		"bad alpha":        {"learning_rate: 0\n", "learning_rate"},
		"bad log level":    {"log_level: chatty\n", "log_level"},
		"bad color":        {"color: rainbow\n", "color"},
		"bad segment":      {"example_segment: first\n", "example_segment"},
		"example too late": {"example_time_remaining: 99\n", "example_time_remaining"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader().Load(writeFile(t, "bad.yaml", tc.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, engine.ErrConfiguration)
			var cerr *engine.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettingsYAML(t *testing.T) {
	s, err := NewLoader().Load("")
	require.NoError(t, err)
	out, err := s.YAML()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "num_seats: 100")
	assert.Contains(t, text, "learning_rate: 0.15")
	assert.Contains(t, text, "policy_fallback: lowest")
	assert.NotContains(t, text, "logger")
	assert.NotContains(t, text, "chart_path")
}
