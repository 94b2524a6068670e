// Package config loads the show service configuration from an optional YAML
// file on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Show     ShowConfig     `yaml:"show"`
	Hardware HardwareConfig `yaml:"hardware"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type HTTPConfig struct {
	// ListenAddr is the address of the local status API; empty disables it
	ListenAddr        string        `yaml:"listen_addr"`
	WebsocketInterval time.Duration `yaml:"websocket_interval"`
}

// ShowConfig holds the sequencer constants and the initial values of the
// externally settable show parameters.
type ShowConfig struct {
	TickInterval       time.Duration `yaml:"tick_interval"`
	TakeoffHeight      float64       `yaml:"takeoff_height"`
	TakeoffDuration    time.Duration `yaml:"takeoff_duration"`
	LandingVelocity    float64       `yaml:"landing_velocity"`
	LowBatteryDuration time.Duration `yaml:"low_battery_duration"`
	BatteryMargin      float64       `yaml:"battery_margin"`
	LandedTimeout      time.Duration `yaml:"landed_timeout"`
	ImminentWindow     time.Duration `yaml:"imminent_window"`

	Enabled bool `yaml:"enabled"`
	Testing bool `yaml:"testing"`
	// TakeoffTime is the start of the trajectory relative to the show start, in seconds
	TakeoffTime   float64 `yaml:"takeoff_time"`
	LandingHeight float64 `yaml:"landing_height"`
}

// TakeoffVelocity returns the climb rate that reaches TakeoffHeight in TakeoffDuration.
func (s ShowConfig) TakeoffVelocity() float64 {
	return s.TakeoffHeight / s.TakeoffDuration.Seconds()
}

type HardwareConfig struct {
	Enabled bool          `yaml:"enabled"`
	Led     LedConfig     `yaml:"led"`
	Battery BatteryConfig `yaml:"battery"`
}

type LedConfig struct {
	Chip  int `yaml:"chip"`
	Red   int `yaml:"red"`
	Green int `yaml:"green"`
	Blue  int `yaml:"blue"`
	// Threshold is the channel value from which a line is driven high
	Threshold   uint8         `yaml:"threshold"`
	SirenPeriod time.Duration `yaml:"siren_period"`
}

type BatteryConfig struct {
	Device             string        `yaml:"device"`
	Channel            int           `yaml:"channel"`
	Scale              float64       `yaml:"scale"`
	CriticalLowVoltage float64       `yaml:"critical_low_voltage"`
	PollInterval       time.Duration `yaml:"poll_interval"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Redis: RedisConfig{
			Host: "127.0.0.1",
			Port: 6379,
		},
		HTTP: HTTPConfig{
			ListenAddr:        "127.0.0.1:8087",
			WebsocketInterval: 250 * time.Millisecond,
		},
		Show: ShowConfig{
			TickInterval:       50 * time.Millisecond,
			TakeoffHeight:      1.0,
			TakeoffDuration:    2 * time.Second,
			LandingVelocity:    0.5,
			LowBatteryDuration: 5 * time.Second,
			BatteryMargin:      0.1,
			LandedTimeout:      30 * time.Second,
			ImminentWindow:     10 * time.Second,
		},
		Hardware: HardwareConfig{
			Led: LedConfig{
				Chip:        0,
				Red:         17,
				Green:       27,
				Blue:        22,
				Threshold:   1,
				SirenPeriod: 250 * time.Millisecond,
			},
			Battery: BatteryConfig{
				Device:             "iio:device0",
				Channel:            0,
				Scale:              0.001,
				CriticalLowVoltage: 3.0,
				PollInterval:       time.Second,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Overrides are command line values applied over the file; zero values
// leave the setting alone.
type Overrides struct {
	RedisHost  string
	RedisPort  int
	ListenAddr string
	LogLevel   string
}

func (o Overrides) apply(c *Config) {
	if o.RedisHost != "" {
		c.Redis.Host = o.RedisHost
	}
	if o.RedisPort != 0 {
		c.Redis.Port = o.RedisPort
	}
	if o.ListenAddr != "" {
		c.HTTP.ListenAddr = o.ListenAddr
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
}

// Load reads the YAML file at path over the defaults and applies the
// overrides; an empty path skips the file. The result is validated.
func Load(path string, o Overrides) (*Config, error) {
	cfg := Default()
	source := "defaults"
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		source = path
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", source, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Show.TickInterval <= 0 {
		return errors.New("show.tick_interval must be positive")
	}
	if c.Show.TakeoffDuration <= 0 {
		return errors.New("show.takeoff_duration must be positive")
	}
	if c.Show.LowBatteryDuration < 0 || c.Show.LandedTimeout < 0 {
		return errors.New("show durations must not be negative")
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("redis.port %d out of range", c.Redis.Port)
	}
	if c.HTTP.ListenAddr != "" && c.HTTP.WebsocketInterval <= 0 {
		return errors.New("http.websocket_interval must be positive")
	}
	return nil
}
