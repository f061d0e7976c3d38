// Package config loads service configuration from a yaml file with
// environment variable overrides for the deployment-specific knobs.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts yaml values in time.ParseDuration notation ("50ms")
// as well as plain nanosecond integers.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

type DatasetConfig struct {
	// Kind selects the source: csv, record, duckdb or synthetic.
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`

	// CSV options.
	TimeColumn  string `yaml:"time_column"`
	ValueColumn string `yaml:"value_column"`
	Separator   string `yaml:"separator"`
	TimeLayout  string `yaml:"time_layout"`

	// DuckDB options.
	Table string `yaml:"table"`

	// Synthetic options.
	Seed     int64   `yaml:"seed"`
	Baseline float64 `yaml:"baseline"`
	Noise    float64 `yaml:"noise"`
}

type StreamConfig struct {
	Interval      Duration `yaml:"interval"`
	Loop          bool     `yaml:"loop"`
	EventCapacity int      `yaml:"event_capacity"`
	HistorySize   int      `yaml:"history_size"`
}

type DetectorConfig struct {
	WindowSize int     `yaml:"window_size"`
	Threshold  float64 `yaml:"threshold"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DebugConfig struct {
	Verbose bool `yaml:"verbose"`
	Pprof   bool `yaml:"pprof"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Stream   StreamConfig   `yaml:"stream"`
	Detector DetectorConfig `yaml:"detector"`
	Redis    RedisConfig    `yaml:"redis"`
	Debug    DebugConfig    `yaml:"debug"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(15 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Dataset: DatasetConfig{
			Kind:        "csv",
			Path:        "data.csv",
			TimeColumn:  "datetime",
			ValueColumn: "Current",
			Separator:   ";",
			TimeLayout:  "2006-01-02 15:04:05",
			Seed:        1,
			Baseline:    100,
			Noise:       1,
		},
		Stream: StreamConfig{
			Interval:      Duration(100 * time.Millisecond),
			Loop:          true,
			EventCapacity: 1024,
			HistorySize:   100,
		},
		Detector: DetectorConfig{
			WindowSize: 50,
			Threshold:  2.3,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
	}
}

// Load reads path over the defaults. An empty path returns defaults
// with environment overrides applied.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnv("VIGIL_SERVER_ADDR", cfg.Server.Addr)
	cfg.Dataset.Kind = getEnv("VIGIL_DATASET_KIND", cfg.Dataset.Kind)
	cfg.Dataset.Path = getEnv("VIGIL_DATASET_PATH", cfg.Dataset.Path)
	cfg.Redis.Addr = getEnv("VIGIL_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("VIGIL_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("VIGIL_REDIS_DB", cfg.Redis.DB)

	if v := os.Getenv("VIGIL_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = v == "1" || v == "true"
	}
	if v := os.Getenv("VIGIL_DETECTOR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.Threshold = f
		}
	}
	if v := os.Getenv("VIGIL_STREAM_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Stream.Interval = Duration(d)
		}
	}
}

// maxMagnitude mirrors fixed.MaxAbsValue for knobs that become decimals.
const maxMagnitude = 1e9

func (c Config) Validate() error {
	switch c.Dataset.Kind {
	case "csv", "record", "duckdb", "synthetic":
	default:
		return fmt.Errorf("unknown dataset kind %q", c.Dataset.Kind)
	}
	if c.Detector.Threshold <= 0 || math.IsNaN(c.Detector.Threshold) || math.IsInf(c.Detector.Threshold, 0) {
		return fmt.Errorf("detector threshold must be a finite positive number, got %v", c.Detector.Threshold)
	}
	if c.Detector.Threshold > maxMagnitude {
		return fmt.Errorf("detector threshold must be at most %v, got %v", float64(maxMagnitude), c.Detector.Threshold)
	}
	if math.IsNaN(c.Dataset.Baseline) || math.IsInf(c.Dataset.Baseline, 0) || math.Abs(c.Dataset.Baseline) > maxMagnitude {
		return fmt.Errorf("dataset baseline must be finite with magnitude at most %v, got %v", float64(maxMagnitude), c.Dataset.Baseline)
	}
	if c.Detector.WindowSize < 0 {
		return fmt.Errorf("detector window size must not be negative, got %d", c.Detector.WindowSize)
	}
	if c.Stream.Interval < 0 {
		return fmt.Errorf("stream interval must not be negative, got %v", c.Stream.Interval)
	}
	if c.Stream.EventCapacity <= 0 {
		return fmt.Errorf("stream event capacity must be positive, got %d", c.Stream.EventCapacity)
	}
	if c.Stream.HistorySize <= 0 {
		return fmt.Errorf("stream history size must be positive, got %d", c.Stream.HistorySize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
