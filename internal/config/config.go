package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the engine.
type Config struct {
	GeminiAPIKey  string
	LocalLLMURL   string
	LocalLLMModel string

	DBPath string

	MaxAttempts       int
	BaseDelay         time.Duration
	GenerationTimeout time.Duration
	SuggestionTimeout time.Duration
}

// NewFromEnv creates a new Config object from environment variables. At least
// one generation backend must be configured; everything else has defaults.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		LocalLLMURL:       os.Getenv("LOCAL_LLM_URL"),
		LocalLLMModel:     os.Getenv("LOCAL_LLM_MODEL"),
		DBPath:            os.Getenv("HABEAT_DB_PATH"),
		MaxAttempts:       3,
		BaseDelay:         1500 * time.Millisecond,
		GenerationTimeout: 120 * time.Second,
		SuggestionTimeout: 45 * time.Second,
	}

	if cfg.GeminiAPIKey == "" && cfg.LocalLLMURL == "" {
		return nil, fmt.Errorf("neither GEMINI_API_KEY nor LOCAL_LLM_URL environment variable is set")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/habeat.db"
	}

	if v := os.Getenv("HABEAT_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("HABEAT_MAX_ATTEMPTS must be a positive integer, got %q", v)
		}
		cfg.MaxAttempts = n
	}
	if v := os.Getenv("HABEAT_BASE_DELAY_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("HABEAT_BASE_DELAY_MS must be a non-negative integer, got %q", v)
		}
		cfg.BaseDelay = time.Duration(n) * time.Millisecond
	}
	if v := os.Getenv("HABEAT_GENERATION_TIMEOUT_S"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("HABEAT_GENERATION_TIMEOUT_S must be a positive integer, got %q", v)
		}
		cfg.GenerationTimeout = time.Duration(n) * time.Second
	}

	return cfg, nil
}
