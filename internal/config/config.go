// Package config loads engine settings from an optional YAML file with
// WAYPOINT_* environment overrides applied on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts values such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

type EngineConfig struct {
	MaxPivotDepth         int      `yaml:"max_pivot_depth"`
	TriggerCooldown       Duration `yaml:"trigger_cooldown"`
	WeatherLookahead      Duration `yaml:"weather_lookahead"`
	WeatherRiskThreshold  float64  `yaml:"weather_risk_threshold"`
	OverrunThreshold      Duration `yaml:"overrun_threshold"`
	MoodThreshold         int      `yaml:"mood_threshold"`
	PivotExpiry           Duration `yaml:"pivot_expiry"`
	ExpiringSoon          Duration `yaml:"expiring_soon"`
	ScanInterval          Duration `yaml:"scan_interval"`
	EvaluationInterval    Duration `yaml:"evaluation_interval"`
	EvaluationParallelism int      `yaml:"evaluation_parallelism"`
	ExtendMinutes         int      `yaml:"extend_minutes"`
}

type CandidateConfig struct {
	TopK             int     `yaml:"top_k"`
	SwapRadiusM      float64 `yaml:"swap_radius_m"`
	MicroStopRadiusM float64 `yaml:"micro_stop_radius_m"`
	WeightDistance   float64 `yaml:"weight_distance"`
	WeightQuality    float64 `yaml:"weight_quality"`
	WeightTag        float64 `yaml:"weight_tag"`
}

type CascadeConfig struct {
	MinGap     Duration `yaml:"min_gap"`
	DayEndHour int      `yaml:"day_end_hour"`
}

type PromptConfig struct {
	MaxLength         int      `yaml:"max_length"`
	ClassifierTimeout Duration `yaml:"classifier_timeout"`
}

type CooldownConfig struct {
	// Backend is "memory" or "redis".
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Prefix    string `yaml:"prefix"`
}

// NotifyConfig selects where lifecycle notifications go. The redis backend
// publishes on a per-trip channel and also logs.
type NotifyConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	Prefix    string `yaml:"prefix"`
}

type Config struct {
	DBPath   string          `yaml:"db_path"`
	HTTPAddr string          `yaml:"http_addr"`
	LogLevel string          `yaml:"log_level"`
	Engine   EngineConfig    `yaml:"engine"`
	Cand     CandidateConfig `yaml:"candidate"`
	Cascade  CascadeConfig   `yaml:"cascade"`
	Prompt   PromptConfig    `yaml:"prompt"`
	Cooldown CooldownConfig  `yaml:"cooldown"`
	Notify   NotifyConfig    `yaml:"notify"`
}

// Default returns a Config with the values used when nothing is configured.
func Default() Config {
	return Config{
		DBPath:   "waypoint.db",
		HTTPAddr: ":8080",
		LogLevel: "info",
		Engine: EngineConfig{
			MaxPivotDepth:         3,
			TriggerCooldown:       Duration{30 * time.Minute},
			WeatherLookahead:      Duration{3 * time.Hour},
			WeatherRiskThreshold:  0.7,
			OverrunThreshold:      Duration{20 * time.Minute},
			MoodThreshold:         2,
			PivotExpiry:           Duration{20 * time.Minute},
			ExpiringSoon:          Duration{5 * time.Minute},
			ScanInterval:          Duration{time.Minute},
			EvaluationInterval:    Duration{5 * time.Minute},
			EvaluationParallelism: 4,
			ExtendMinutes:         30,
		},
		Cand: CandidateConfig{
			TopK:             3,
			SwapRadiusM:      3000,
			MicroStopRadiusM: 200,
			WeightDistance:   0.4,
			WeightQuality:    0.4,
			WeightTag:        0.2,
		},
		Cascade: CascadeConfig{
			MinGap:     Duration{5 * time.Minute},
			DayEndHour: 24,
		},
		Prompt: PromptConfig{
			MaxLength:         500,
			ClassifierTimeout: Duration{1500 * time.Millisecond},
		},
		Cooldown: CooldownConfig{
			Backend: "memory",
			Prefix:  "waypoint:cooldown:",
		},
		Notify: NotifyConfig{
			Backend: "log",
			Prefix:  "waypoint:notify:",
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Engine.MaxPivotDepth < 1:
		return fmt.Errorf("engine.max_pivot_depth must be >= 1, got %d", c.Engine.MaxPivotDepth)
	case c.Engine.PivotExpiry.Duration <= 0:
		return fmt.Errorf("engine.pivot_expiry must be positive")
	case c.Engine.EvaluationParallelism < 1:
		return fmt.Errorf("engine.evaluation_parallelism must be >= 1")
	case c.Cand.TopK < 1:
		return fmt.Errorf("candidate.top_k must be >= 1, got %d", c.Cand.TopK)
	case c.Cand.MicroStopRadiusM <= 0 || c.Cand.SwapRadiusM <= 0:
		return fmt.Errorf("candidate radii must be positive")
	case c.Cascade.MinGap.Duration < 0:
		return fmt.Errorf("cascade.min_gap must not be negative")
	case c.Cascade.DayEndHour < 1 || c.Cascade.DayEndHour > 24:
		return fmt.Errorf("cascade.day_end_hour must be in [1,24], got %d", c.Cascade.DayEndHour)
	case c.Prompt.MaxLength < 1:
		return fmt.Errorf("prompt.max_length must be >= 1")
	case c.Prompt.ClassifierTimeout.Duration <= 0:
		return fmt.Errorf("prompt.classifier_timeout must be positive")
	case c.Cooldown.Backend != "memory" && c.Cooldown.Backend != "redis":
		return fmt.Errorf("cooldown.backend must be memory or redis, got %q", c.Cooldown.Backend)
	case c.Cooldown.Backend == "redis" && c.Cooldown.RedisAddr == "":
		return fmt.Errorf("cooldown.redis_addr is required for the redis backend")
	case c.Notify.Backend != "log" && c.Notify.Backend != "redis":
		return fmt.Errorf("notify.backend must be log or redis, got %q", c.Notify.Backend)
	case c.Notify.Backend == "redis" && c.Notify.RedisAddr == "":
		return fmt.Errorf("notify.redis_addr is required for the redis backend")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WAYPOINT_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("WAYPOINT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("WAYPOINT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WAYPOINT_MAX_PIVOT_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.MaxPivotDepth = n
		}
	}
	applyDurationEnv(&cfg.Engine.TriggerCooldown, "WAYPOINT_TRIGGER_COOLDOWN")
	applyDurationEnv(&cfg.Engine.PivotExpiry, "WAYPOINT_PIVOT_EXPIRY")
	applyDurationEnv(&cfg.Engine.ScanInterval, "WAYPOINT_SCAN_INTERVAL")
	applyDurationEnv(&cfg.Prompt.ClassifierTimeout, "WAYPOINT_CLASSIFIER_TIMEOUT")
	if v := os.Getenv("WAYPOINT_COOLDOWN_BACKEND"); v != "" {
		cfg.Cooldown.Backend = v
	}
	if v := os.Getenv("WAYPOINT_REDIS_ADDR"); v != "" {
		cfg.Cooldown.RedisAddr = v
		cfg.Notify.RedisAddr = v
	}
	if v := os.Getenv("WAYPOINT_NOTIFY_BACKEND"); v != "" {
		cfg.Notify.Backend = v
	}
}

func applyDurationEnv(d *Duration, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return
	}
	d.Duration = parsed
}
