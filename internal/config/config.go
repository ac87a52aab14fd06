package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures every setting needed to boot the thermal dashboard.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Source     SourceConfig     `yaml:"source"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Polling    PollingConfig    `yaml:"polling"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Mock       MockConfig       `yaml:"mock"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cache      CacheConfig      `yaml:"cache"`
}

// ServerConfig controls the HTTP, gRPC and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// SourceConfig locates the AIDA64 CSV log. LogPath may be a doublestar glob,
// in which case the most recently modified match is read.
type SourceConfig struct {
	LogPath  string        `yaml:"logPath"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// UpstreamConfig points the composed endpoint at a remote latest-log endpoint.
// An empty BaseURL composes in-process.
type UpstreamConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	LatestPath string        `yaml:"latestPath"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PollingConfig holds the refresh cadence of the page and table feeds.
type PollingConfig struct {
	PageInterval  time.Duration `yaml:"pageInterval"`
	TableInterval time.Duration `yaml:"tableInterval"`
}

// ThresholdsConfig holds the two named status policies.
type ThresholdsConfig struct {
	Default PolicyConfig `yaml:"default"`
	Table   PolicyConfig `yaml:"table"`
}

// PolicyConfig is one threshold set. CoolBelow of zero disables the Cool class.
type PolicyConfig struct {
	Warning   float64 `yaml:"warning"`
	Critical  float64 `yaml:"critical"`
	CoolBelow float64 `yaml:"coolBelow"`
}

// SensorsConfig controls sensor metadata lookup.
type SensorsConfig struct {
	ProfilesPath    string `yaml:"profilesPath"`
	SynthesizeUsage bool   `yaml:"synthesizeUsage"`
}

// MockConfig controls the placeholder generator. Seed 0 means non-deterministic.
type MockConfig struct {
	Seed uint64 `yaml:"seed"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls the parse-result cache. Without Redis an in-process
// map is used.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	LatestTTL    time.Duration `yaml:"latestTTL"`
	UpstreamTTL  time.Duration `yaml:"upstreamTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_THERMAL_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			GRPCAddress:     ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			LogPath:  "aida64_log_log.csv",
			Watch:    true,
			Debounce: 250 * time.Millisecond,
		},
		Upstream: UpstreamConfig{
			LatestPath: "/api/aida64",
			Timeout:    5 * time.Second,
		},
		Polling: PollingConfig{
			PageInterval:  5 * time.Second,
			TableInterval: 3 * time.Second,
		},
		Thresholds: ThresholdsConfig{
			Default: PolicyConfig{Warning: 70, Critical: 80},
			Table:   PolicyConfig{Warning: 75, Critical: 85, CoolBelow: 50},
		},
		Sensors: SensorsConfig{
			ProfilesPath:    "configs/sensors/default.yaml",
			SynthesizeUsage: true,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			LatestTTL:    30 * time.Second,
			UpstreamTTL:  time.Second,
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Polling.PageInterval <= 0 || c.Polling.TableInterval <= 0 {
		return fmt.Errorf("polling intervals must be positive")
	}
	for name, p := range map[string]PolicyConfig{"default": c.Thresholds.Default, "table": c.Thresholds.Table} {
		if p.Critical < p.Warning {
			return fmt.Errorf("thresholds.%s: critical (%.1f) below warning (%.1f)", name, p.Critical, p.Warning)
		}
	}
	if strings.TrimSpace(c.Source.LogPath) == "" {
		return fmt.Errorf("source.logPath is required")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_THERMAL_HTTP_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_GRPC_ADDRESS"); v != "" {
		cfg.Server.GRPCAddress = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_LOG_PATH"); v != "" {
		cfg.Source.LogPath = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_WATCH"); v != "" {
		cfg.Source.Watch = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_THERMAL_UPSTREAM_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_UPSTREAM_PATH"); v != "" {
		cfg.Upstream.LatestPath = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_PAGE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Polling.PageInterval = d
		}
	}
	if v := os.Getenv("MIRADOR_THERMAL_TABLE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Polling.TableInterval = d
		}
	}
	if v := os.Getenv("MIRADOR_THERMAL_SENSOR_PROFILES"); v != "" {
		cfg.Sensors.ProfilesPath = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_SYNTHESIZE_USAGE"); v != "" {
		cfg.Sensors.SynthesizeUsage = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_THERMAL_MOCK_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Mock.Seed = seed
		}
	}
	if v := os.Getenv("MIRADOR_THERMAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_THERMAL_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_THERMAL_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("MIRADOR_THERMAL_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("MIRADOR_THERMAL_CACHE_TLS"); v != "" {
		cfg.Cache.TLS = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_THERMAL_CACHE_LATEST_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.LatestTTL = d
		}
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
