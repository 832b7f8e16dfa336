// Package config loads the junction daemon configuration from a YAML file
// with sane defaults for every key.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the full daemon configuration.
type Config struct {
	Junction JunctionConfig `mapstructure:"junction"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Rules    RulesConfig    `mapstructure:"rules"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
}

// JunctionConfig identifies the junction and its camera calibration.
type JunctionConfig struct {
	ID             int     `mapstructure:"id"`
	PixelsPerMeter float64 `mapstructure:"pixels_per_meter"`
	FPS            float64 `mapstructure:"fps"`
}

// TrackerConfig holds the tracker and smoothing parameters.
type TrackerConfig struct {
	MaxAge       int     `mapstructure:"max_age"`
	MinHits      int     `mapstructure:"min_hits"`
	IOUThreshold float64 `mapstructure:"iou_threshold"`
	CarWindow    int     `mapstructure:"car_window"`
	PlateWindow  int     `mapstructure:"plate_window"`
}

// RulesConfig holds the decision heuristics calibration.
type RulesConfig struct {
	StandardGreen int           `mapstructure:"standard_green"`
	MinGreen      int           `mapstructure:"min_green"`
	MaxGreen      int           `mapstructure:"max_green"`
	HighDensity   int           `mapstructure:"high_density"`
	LowDensity    int           `mapstructure:"low_density"`
	LogInterval   time.Duration `mapstructure:"log_interval"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("junction.id", 1)
	v.SetDefault("junction.pixels_per_meter", 50.0)
	v.SetDefault("junction.fps", 30.0)

	v.SetDefault("tracker.max_age", 30)
	v.SetDefault("tracker.min_hits", 3)
	v.SetDefault("tracker.iou_threshold", 0.3)
	v.SetDefault("tracker.car_window", 30)
	v.SetDefault("tracker.plate_window", 5)

	v.SetDefault("rules.standard_green", 30)
	v.SetDefault("rules.min_green", 10)
	v.SetDefault("rules.max_green", 60)
	v.SetDefault("rules.high_density", 15)
	v.SetDefault("rules.low_density", 5)
	v.SetDefault("rules.log_interval", 5*time.Second)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("database.path", "mobility.db")
}

// Default returns the configuration with every key at its default.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Load reads the YAML file at path. A missing file is not an error; the
// defaults apply for every key the file does not set.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !errors.Is(err, os.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	return cfg, nil
}
