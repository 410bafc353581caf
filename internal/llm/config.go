package llm

import (
	"os"
	"strconv"
)

// TaskType identifies the kind of model call being made.
type TaskType string

const (
	// TaskClassify maps traveler free text to a pivot intent.
	TaskClassify TaskType = "classify"
)

// TaskConfig holds per-task model parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides global if > 0
}

// LLMConfig holds all configuration for the classifier backend.
type LLMConfig struct {
	Enabled    bool
	LogCalls   bool
	Endpoint   string
	Model      string
	TimeoutMs  int
	MaxRetries int
	// MinConfidence is the lowest classifier confidence accepted; anything
	// below falls back to keyword matching.
	MinConfidence float64
	Tasks         map[TaskType]TaskConfig
}

// DefaultConfig returns an LLMConfig with the classifier disabled.
func DefaultConfig() LLMConfig {
	return LLMConfig{
		Enabled:       false,
		LogCalls:      false,
		Endpoint:      "http://localhost:11434",
		Model:         "llama3.2",
		TimeoutMs:     1500,
		MaxRetries:    0,
		MinConfidence: 0.6,
		Tasks: map[TaskType]TaskConfig{
			TaskClassify: {Temperature: 0.0, MaxTokens: 128, TimeoutMs: 1500},
		},
	}
}

// LoadConfig reads WAYPOINT_LLM_* environment variables over the defaults.
func LoadConfig() LLMConfig {
	cfg := DefaultConfig()

	if v := os.Getenv("WAYPOINT_LLM_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("WAYPOINT_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("WAYPOINT_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("WAYPOINT_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("WAYPOINT_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("WAYPOINT_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("WAYPOINT_LLM_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.MinConfidence = f
		}
	}
	if v := os.Getenv("WAYPOINT_LLM_CLASSIFY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			tc := cfg.Tasks[TaskClassify]
			tc.TimeoutMs = n
			cfg.Tasks[TaskClassify] = tc
		}
	}

	return cfg
}

// TaskTimeout returns the task-specific timeout if set, otherwise the global one.
func (c LLMConfig) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}
