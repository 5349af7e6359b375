package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	clerrors "commitline/internal/errors"
)

// Config models commitline.yml.
type Config struct {
	Scoring struct {
		Weights Weights `yaml:"weights"`
		Streak  struct {
			PointsPerWeek  float64 `yaml:"points_per_week"`
			MaxBonusPoints float64 `yaml:"max_bonus_points"`
		} `yaml:"streak"`
		CleanSlateCeiling float64 `yaml:"clean_slate_ceiling"`
	} `yaml:"scoring"`
	Metrics struct {
		NotificationHorizonDays int `yaml:"notification_horizon_days"`
		Estimation              struct {
			MinSamples   int     `yaml:"min_samples"`
			HalfLifeDays float64 `yaml:"half_life_days"`
			MaxAgeDays   int     `yaml:"max_age_days"`
		} `yaml:"estimation"`
	} `yaml:"metrics"`
	Trend struct {
		WindowDays int     `yaml:"window_days"`
		Threshold  float64 `yaml:"threshold"`
	} `yaml:"trend"`
	Report struct {
		AffectingWindowDays int `yaml:"affecting_window_days"`
		AffectingLimit      int `yaml:"affecting_limit"`
	} `yaml:"report"`
}

type Weights struct {
	OnTime       float64 `yaml:"on_time"`
	Notification float64 `yaml:"notification"`
	Cleanup      float64 `yaml:"cleanup"`
	Estimation   float64 `yaml:"estimation"`
}

// Sum returns the total weight of the four rates.
func (w Weights) Sum() float64 {
	return w.OnTime + w.Notification + w.Cleanup + w.Estimation
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with cl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures every scoring parameter is in range.
func (c *Config) Validate() error {
	if c == nil {
		return clerrors.ErrConfigNil
	}
	w := c.Scoring.Weights
	for name, v := range map[string]float64{"on_time": w.OnTime, "notification": w.Notification, "cleanup": w.Cleanup, "estimation": w.Estimation} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: scoring.weights.%s must be within [0,1]", clerrors.ErrConfigInvalid, name)
		}
	}
	if w.Sum() > 1+1e-9 {
		return fmt.Errorf("%w: scoring.weights must not sum above 1 (got %.2f)", clerrors.ErrConfigInvalid, w.Sum())
	}
	if c.Scoring.Streak.PointsPerWeek < 0 || c.Scoring.Streak.MaxBonusPoints < 0 {
		return fmt.Errorf("%w: scoring.streak values must be non-negative", clerrors.ErrConfigInvalid)
	}
	if c.Scoring.CleanSlateCeiling < 0 || c.Scoring.CleanSlateCeiling > 100 {
		return fmt.Errorf("%w: scoring.clean_slate_ceiling must be within [0,100]", clerrors.ErrConfigInvalid)
	}
	if c.Metrics.NotificationHorizonDays <= 0 {
		return fmt.Errorf("%w: metrics.notification_horizon_days must be positive", clerrors.ErrConfigInvalid)
	}
	est := c.Metrics.Estimation
	if est.MinSamples < 1 || est.HalfLifeDays <= 0 || math.IsInf(est.HalfLifeDays, 0) || est.MaxAgeDays <= 0 {
		return fmt.Errorf("%w: metrics.estimation requires min_samples>=1, half_life_days>0, max_age_days>0", clerrors.ErrConfigInvalid)
	}
	if c.Trend.WindowDays <= 0 {
		return fmt.Errorf("%w: trend.window_days must be positive", clerrors.ErrConfigInvalid)
	}
	if c.Trend.Threshold < 0 {
		return fmt.Errorf("%w: trend.threshold must be non-negative", clerrors.ErrConfigInvalid)
	}
	if c.Report.AffectingWindowDays <= 0 || c.Report.AffectingLimit <= 0 {
		return fmt.Errorf("%w: report window and limit must be positive", clerrors.ErrConfigInvalid)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "commitline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `scoring:
  weights:
    on_time: 0.35
    notification: 0.25
    cleanup: 0.25
    estimation: 0.10
  streak:
    points_per_week: 2
    max_bonus_points: 5
  # A user with no history at all scores this, not the weighted maximum.
  clean_slate_ceiling: 90

metrics:
  notification_horizon_days: 7
  estimation:
    min_samples: 5
    half_life_days: 7
    max_age_days: 90

trend:
  window_days: 30
  threshold: 0.05

report:
  affecting_window_days: 30
  affecting_limit: 5
`
