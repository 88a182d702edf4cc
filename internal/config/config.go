package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the health monitor.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Logging    LoggingConfig   `yaml:"logging"`
	Monitor    MonitorConfig   `yaml:"monitor"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Sink       SinkConfig      `yaml:"sink"`
	Migration  MigrationConfig `yaml:"migration"`
	Reporting  ReportingConfig `yaml:"reporting"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MonitorConfig controls tick intervals and store bounds.
type MonitorConfig struct {
	ScoringInterval    time.Duration `yaml:"scoringInterval"`
	AlertInterval      time.Duration `yaml:"alertInterval"`
	ReportingInterval  time.Duration `yaml:"reportingInterval"`
	MaxStoredErrors    int           `yaml:"maxStoredErrors"`
	MaxStoredAlerts    int           `yaml:"maxStoredAlerts"`
	StaleEntityWindow  time.Duration `yaml:"staleEntityWindow"`
	VelocityWindowDays int           `yaml:"velocityWindowDays"`
	TrendHistory       int           `yaml:"trendHistory"`
}

// ThresholdConfig holds alerting thresholds for each watched signal.
type ThresholdConfig struct {
	ErrorRate     float64 `yaml:"errorRate"`
	Adoption      float64 `yaml:"adoption"`
	Accessibility float64 `yaml:"accessibility"`
	Velocity      float64 `yaml:"velocity"`
}

// SinkConfig configures report delivery.
type SinkConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// MigrationConfig points at the static task catalog loaded at startup.
type MigrationConfig struct {
	CatalogPath string `yaml:"catalogPath"`
}

// ReportingConfig controls recommendation rule-pack loading.
type ReportingConfig struct {
	RulesPath string `yaml:"rulesPath"`
}

// Load initialises Config from a YAML file and optional environment overrides,
// then validates the result. Invalid configuration prevents startup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("HEALTHMON_CONFIG")
	}

	cfg := defaultConfig()

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

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8086",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Monitor: MonitorConfig{
			ScoringInterval:    30 * time.Second,
			AlertInterval:      30 * time.Second,
			ReportingInterval:  5 * time.Minute,
			MaxStoredErrors:    1000,
			MaxStoredAlerts:    200,
			StaleEntityWindow:  7 * 24 * time.Hour,
			VelocityWindowDays: 14,
			TrendHistory:       12,
		},
		Thresholds: ThresholdConfig{
			ErrorRate:     5,
			Adoption:      50,
			Accessibility: 80,
			Velocity:      0.5,
		},
		Sink:      SinkConfig{Timeout: 5 * time.Second},
		Migration: MigrationConfig{CatalogPath: "configs/migration-tasks.yaml"},
		Reporting: ReportingConfig{RulesPath: "configs/recommendations.yaml"},
	}
}

// Validate reports the first invalid setting found.
func (c *Config) Validate() error {
	if c.Monitor.ScoringInterval <= 0 {
		return fmt.Errorf("monitor.scoringInterval must be positive, got %v", c.Monitor.ScoringInterval)
	}
	if c.Monitor.AlertInterval <= 0 {
		return fmt.Errorf("monitor.alertInterval must be positive, got %v", c.Monitor.AlertInterval)
	}
	if c.Monitor.ReportingInterval <= 0 {
		return fmt.Errorf("monitor.reportingInterval must be positive, got %v", c.Monitor.ReportingInterval)
	}
	if c.Monitor.MaxStoredErrors <= 0 {
		return fmt.Errorf("monitor.maxStoredErrors must be positive, got %d", c.Monitor.MaxStoredErrors)
	}
	if c.Monitor.MaxStoredAlerts <= 0 {
		return fmt.Errorf("monitor.maxStoredAlerts must be positive, got %d", c.Monitor.MaxStoredAlerts)
	}
	if c.Monitor.StaleEntityWindow <= 0 {
		return fmt.Errorf("monitor.staleEntityWindow must be positive, got %v", c.Monitor.StaleEntityWindow)
	}
	if c.Monitor.VelocityWindowDays <= 0 {
		return fmt.Errorf("monitor.velocityWindowDays must be positive, got %d", c.Monitor.VelocityWindowDays)
	}
	if c.Monitor.TrendHistory <= 0 {
		return fmt.Errorf("monitor.trendHistory must be positive, got %d", c.Monitor.TrendHistory)
	}
	if c.Thresholds.ErrorRate <= 0 {
		return fmt.Errorf("thresholds.errorRate must be positive, got %v", c.Thresholds.ErrorRate)
	}
	if c.Thresholds.Adoption < 0 || c.Thresholds.Adoption > 100 {
		return fmt.Errorf("thresholds.adoption must be in [0,100], got %v", c.Thresholds.Adoption)
	}
	if c.Thresholds.Accessibility < 0 || c.Thresholds.Accessibility > 100 {
		return fmt.Errorf("thresholds.accessibility must be in [0,100], got %v", c.Thresholds.Accessibility)
	}
	if c.Thresholds.Velocity < 0 {
		return fmt.Errorf("thresholds.velocity must be non-negative, got %v", c.Thresholds.Velocity)
	}
	if c.Sink.Timeout <= 0 {
		return fmt.Errorf("sink.timeout must be positive, got %v", c.Sink.Timeout)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEALTHMON_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("HEALTHMON_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("HEALTHMON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HEALTHMON_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("HEALTHMON_SCORING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.ScoringInterval = d
		}
	}
	if v := os.Getenv("HEALTHMON_ALERT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.AlertInterval = d
		}
	}
	if v := os.Getenv("HEALTHMON_REPORTING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.ReportingInterval = d
		}
	}
	if v := os.Getenv("HEALTHMON_MAX_STORED_ERRORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.MaxStoredErrors = n
		}
	}
	if v := os.Getenv("HEALTHMON_MAX_STORED_ALERTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.MaxStoredAlerts = n
		}
	}
	if v := os.Getenv("HEALTHMON_STALE_ENTITY_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.StaleEntityWindow = d
		}
	}
	if v := os.Getenv("HEALTHMON_ERROR_RATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.ErrorRate = f
		}
	}
	if v := os.Getenv("HEALTHMON_ADOPTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.Adoption = f
		}
	}
	if v := os.Getenv("HEALTHMON_ACCESSIBILITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.Accessibility = f
		}
	}
	if v := os.Getenv("HEALTHMON_VELOCITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.Velocity = f
		}
	}
	if v := os.Getenv("HEALTHMON_SINK_URL"); v != "" {
		cfg.Sink.URL = v
	}
	if v := os.Getenv("HEALTHMON_SINK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sink.Timeout = d
		}
	}
	if v := os.Getenv("HEALTHMON_MIGRATION_CATALOG"); v != "" {
		cfg.Migration.CatalogPath = v
	}
	if v := os.Getenv("HEALTHMON_RECOMMENDATION_RULES"); v != "" {
		cfg.Reporting.RulesPath = v
	}
}
