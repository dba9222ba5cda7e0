package engine

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	FallbackLowest = "lowest"
	FallbackMedian = "median"
)

const (
	DefaultNumSeats             = 100
	DefaultTimeHorizon          = 12
	DefaultLearningRate         = 0.15
	DefaultDiscountFactor       = 0.85
	DefaultExplorationRate      = 0.2
	DefaultEpisodes             = 5000
	DefaultCompetitorVolatility = 1.0 / 6.0
	DefaultLogInterval          = 100
)

// Config holds every recognized training option. Start from DefaultConfig;
// NewTrainer validates the result as-is and never patches invalid values.
type Config struct {
	NumSeats             int       `mapstructure:"num_seats" yaml:"num_seats" validate:"gt=0"`
	TimeHorizon          int       `mapstructure:"time_horizon" yaml:"time_horizon" validate:"gt=0"`
	PriceLevels          []float64 `mapstructure:"price_levels" yaml:"price_levels" validate:"required,min=1,dive,gte=0"`
	LearningRate         float64   `mapstructure:"learning_rate" yaml:"learning_rate" validate:"gt=0,lte=1"`
	DiscountFactor       float64   `mapstructure:"discount_factor" yaml:"discount_factor" validate:"gte=0,lte=1"`
	ExplorationRate      float64   `mapstructure:"exploration_rate" yaml:"exploration_rate" validate:"gte=0,lte=1"`
	ExplorationDecay     float64   `mapstructure:"exploration_decay" yaml:"exploration_decay" validate:"gte=0,lte=1"`
	ExplorationMin       float64   `mapstructure:"exploration_min" yaml:"exploration_min" validate:"gte=0,lte=1"`
	Episodes             int       `mapstructure:"episodes" yaml:"episodes" validate:"gt=0"`
	Seed                 int64     `mapstructure:"seed" yaml:"seed"`
	Workers              int       `mapstructure:"workers" yaml:"workers" validate:"gte=1"`
	CompetitorVolatility float64   `mapstructure:"competitor_volatility" yaml:"competitor_volatility" validate:"gte=0,lte=1"`
	BookingRateBounds    []float64 `mapstructure:"booking_rate_bounds" yaml:"booking_rate_bounds" validate:"len=2,dive,gt=0,lt=1"`
	CompetitorBounds     []float64 `mapstructure:"competitor_bounds" yaml:"competitor_bounds" validate:"len=2,dive,gt=0,lt=1"`
	PolicyFallback       string    `mapstructure:"policy_fallback" yaml:"policy_fallback" validate:"oneof=lowest median"`
	KeepTrajectory       bool      `mapstructure:"keep_trajectory" yaml:"keep_trajectory"`
	LogInterval          int       `mapstructure:"log_interval" yaml:"log_interval" validate:"gte=0"`

	Logger *zap.Logger `mapstructure:"-" yaml:"-" validate:"-"`
	// Observer, when set, receives every snapshot Train produces. Parallel
	// workers call it concurrently.
	Observer func(Snapshot) `mapstructure:"-" yaml:"-" validate:"-"`
}

// DefaultConfig mirrors a single day of sales: 100 seats over 12 steps with
// prices from 100 to 640 in steps of 20.
func DefaultConfig() Config {
	return Config{
		NumSeats:             DefaultNumSeats,
		TimeHorizon:          DefaultTimeHorizon,
		PriceLevels:          PriceRange(100, 650, 20),
		LearningRate:         DefaultLearningRate,
		DiscountFactor:       DefaultDiscountFactor,
		ExplorationRate:      DefaultExplorationRate,
		Episodes:             DefaultEpisodes,
		Workers:              1,
		CompetitorVolatility: DefaultCompetitorVolatility,
		BookingRateBounds:    []float64{1.0 / 3.0, 2.0 / 3.0},
		CompetitorBounds:     []float64{1.0 / 3.0, 2.0 / 3.0},
		PolicyFallback:       FallbackLowest,
		LogInterval:          DefaultLogInterval,
	}
}

// PriceRange returns min, min+step, ... up to and including max.
func PriceRange(min, max, step float64) []float64 {
	if step <= 0 || max < min {
		return nil
	}
	var levels []float64
	for p := min; p <= max; p += step {
		levels = append(levels, p)
	}
	return levels
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate reports the first invalid option as a *ConfigError.
func (c Config) Validate() error {
	if err := configValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{Field: fieldName(fe), Value: fe.Value(), Reason: describeTag(fe)}
		}
		return &ConfigError{Field: "config", Value: nil, Reason: err.Error()}
	}
	if err := allFinite("price_levels", c.PriceLevels); err != nil {
		return err
	}
	if err := strictlyAscending("price_levels", c.PriceLevels); err != nil {
		return err
	}
	if err := strictlyAscending("booking_rate_bounds", c.BookingRateBounds); err != nil {
		return err
	}
	if err := strictlyAscending("competitor_bounds", c.CompetitorBounds); err != nil {
		return err
	}
	if c.ExplorationMin > c.ExplorationRate {
		return &ConfigError{Field: "exploration_min", Value: c.ExplorationMin, Reason: "must not exceed exploration_rate"}
	}
	return nil
}

// fieldName turns "Config.price_levels[2]" into "price_levels[2]".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "required":
		return "is required"
	case "min":
		return "must contain at least " + fe.Param() + " entries"
	case "len":
		return "must contain exactly " + fe.Param() + " entries"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func allFinite(field string, values []float64) error {
	for i, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return &ConfigError{Field: fmt.Sprintf("%s[%d]", field, i), Value: v, Reason: "must be finite"}
		}
	}
	return nil
}

func strictlyAscending(field string, values []float64) error {
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return &ConfigError{
				Field:  fmt.Sprintf("%s[%d]", field, i),
				Value:  values[i],
				Reason: "values must be strictly ascending",
			}
		}
	}
	return nil
}
