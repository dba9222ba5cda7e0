// Package config loads farerl settings with priority flags > env > file > defaults.
package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"fare-rl-go/internal/engine"
	"fare-rl-go/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. FARERL_NUM_SEATS.
const EnvPrefix = "FARERL"

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Settings is the full run configuration: the training options plus the
// outputs around them.
type Settings struct {
	engine.Config `mapstructure:",squash" yaml:",inline"`

	LogLevel             string `mapstructure:"log_level" yaml:"log_level"`
	LogDevelopment       bool   `mapstructure:"log_development" yaml:"log_development"`
	ChartPath            string `mapstructure:"chart_path" yaml:"chart_path,omitempty"`
	MetricsPath          string `mapstructure:"metrics_path" yaml:"metrics_path,omitempty"`
	ExampleTimeRemaining int    `mapstructure:"example_time_remaining" yaml:"example_time_remaining"`
	ExampleSegment       string `mapstructure:"example_segment" yaml:"example_segment"`
	Color                string `mapstructure:"color" yaml:"color"`
}

// Loader wraps a viper instance preloaded with defaults and env bindings.
// Callers bind CLI flags through Viper before calling Load.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	d := engine.DefaultConfig()
	v.SetDefault("num_seats", d.NumSeats)
	v.SetDefault("time_horizon", d.TimeHorizon)
	v.SetDefault("price_levels", d.PriceLevels)
	v.SetDefault("learning_rate", d.LearningRate)
	v.SetDefault("discount_factor", d.DiscountFactor)
	v.SetDefault("exploration_rate", d.ExplorationRate)
	v.SetDefault("exploration_decay", d.ExplorationDecay)
	v.SetDefault("exploration_min", d.ExplorationMin)
	v.SetDefault("episodes", d.Episodes)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("competitor_volatility", d.CompetitorVolatility)
	v.SetDefault("booking_rate_bounds", d.BookingRateBounds)
	v.SetDefault("competitor_bounds", d.CompetitorBounds)
	v.SetDefault("policy_fallback", d.PolicyFallback)
	v.SetDefault("keep_trajectory", d.KeepTrajectory)
	v.SetDefault("log_interval", d.LogInterval)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
	v.SetDefault("chart_path", "")
	v.SetDefault("metrics_path", "")
	v.SetDefault("example_time_remaining", 0)
	v.SetDefault("example_segment", "economy")
	v.SetDefault("color", ColorAuto)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return &Loader{v: v}
}

func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads path (or ./farerl.yaml when path is empty and the file exists),
// applies env and flag overrides, and validates the result. Validation
// failures are *engine.ConfigError.
func (l *Loader) Load(path string) (Settings, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		l.v.SetConfigName("farerl")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return Settings{}, &engine.ConfigError{Field: "config", Value: l.v.ConfigFileUsed(), Reason: err.Error()}
	}
	if s.ExampleTimeRemaining == 0 {
		s.ExampleTimeRemaining = max(1, s.TimeHorizon/2)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

var settingsValidate = validator.New()

// Validate checks the training options and then the output settings.
func (s Settings) Validate() error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return &engine.ConfigError{Field: "log_level", Value: s.LogLevel, Reason: "must be one of: debug info warn error"}
	}
	if err := settingsValidate.Var(s.Color, "oneof=auto always never"); err != nil {
		return &engine.ConfigError{Field: "color", Value: s.Color, Reason: "must be one of: auto always never"}
	}
	if _, ok := engine.ParseSegment(s.ExampleSegment); !ok {
		return &engine.ConfigError{Field: "example_segment", Value: s.ExampleSegment, Reason: "must be economy or business"}
	}
	if s.ExampleTimeRemaining < 1 || s.ExampleTimeRemaining > s.TimeHorizon {
		return &engine.ConfigError{
			Field:  "example_time_remaining",
			Value:  s.ExampleTimeRemaining,
			Reason: fmt.Sprintf("must be within [1, %d]", s.TimeHorizon),
		}
	}
	return nil
}

// Segment returns the parsed example segment. Call after Validate.
func (s Settings) Segment() engine.Segment {
	seg, _ := engine.ParseSegment(s.ExampleSegment)
	return seg
}

// YAML renders the effective settings.
func (s Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
