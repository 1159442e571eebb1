// Package config loads cuetool settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "CUEDISPATCH"

type PoolConfig struct {
	World int `mapstructure:"world"`
	UI    int `mapstructure:"ui"`
}

type SpatialConfig struct {
	MinDistance float64 `mapstructure:"min_distance"`
	MaxDistance float64 `mapstructure:"max_distance"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Listing    string             `mapstructure:"listing"`
	AudioRoot  string             `mapstructure:"audio_root"`
	SampleRate int                `mapstructure:"sample_rate"`
	QueueSize  int                `mapstructure:"queue_size"`
	Pools      PoolConfig         `mapstructure:"pools"`
	Spatial    SpatialConfig      `mapstructure:"spatial"`
	Buses      map[string]float64 `mapstructure:"buses"`
	Log        LogConfig          `mapstructure:"log"`
	Watch      bool               `mapstructure:"watch"`
	Headless   bool               `mapstructure:"headless"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listing", "cues/listing.yaml")
	v.SetDefault("audio_root", "")
	v.SetDefault("sample_rate", 44100)
	v.SetDefault("queue_size", 256)
	v.SetDefault("pools.world", 15)
	v.SetDefault("pools.ui", 5)
	v.SetDefault("spatial.min_distance", 1.0)
	v.SetDefault("spatial.max_distance", 50.0)
	v.SetDefault("buses", map[string]float64{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("watch", false)
	v.SetDefault("headless", false)
}

// New returns a viper instance with defaults and CUEDISPATCH_* environment
// lookups wired. path may be empty.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return v, nil
}

// Decode unmarshals and validates v.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	v, err := New(path)
	if err != nil {
		return Config{}, err
	}
	return Decode(v)
}

func (c Config) Validate() error {
	var errs []error
	if c.Pools.World < 0 {
		errs = append(errs, fmt.Errorf("pools.world must be >= 0, got %d", c.Pools.World))
	}
	if c.Pools.UI < 0 {
		errs = append(errs, fmt.Errorf("pools.ui must be >= 0, got %d", c.Pools.UI))
	}
	if c.Pools.World+c.Pools.UI == 0 {
		errs = append(errs, errors.New("at least one pool must have voices"))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be > 0, got %d", c.SampleRate))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue_size must be > 0, got %d", c.QueueSize))
	}
	if c.Spatial.MinDistance < 0 || c.Spatial.MaxDistance <= c.Spatial.MinDistance {
		errs = append(errs, fmt.Errorf("spatial range [%g, %g] is invalid", c.Spatial.MinDistance, c.Spatial.MaxDistance))
	}
	for bus, gain := range c.Buses {
		if gain < 0 {
			errs = append(errs, fmt.Errorf("bus %q gain must be >= 0, got %g", bus, gain))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// BusGain returns the configured gain for bus, 1 when unset.
func (c Config) BusGain(bus string) float64 {
	if g, ok := c.Buses[bus]; ok {
		return g
	}
	return 1
}
