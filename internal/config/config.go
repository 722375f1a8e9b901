// Package config loads application configuration from environment
// variables, with an optional YAML file for the model catalogue.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Telegram message limits. The caption ceiling applies to text attached to
// a photo or video, the message ceiling to a plain text message.
const (
	MaxMessageLength = 4096
	MaxCaptionLength = 1024
	MaxSummaryPosts  = 20
)

// DefaultRewritePrompt is used when no custom instruction is configured.
const DefaultRewritePrompt = "Rewrite the post in plain language. Output only the rewritten text, " +
	"no Markdown formatting, no headings, no extra symbols, but keep paragraph breaks."

// Config holds all application configuration.
type Config struct {
	// telegram bot
	BotToken string

	// llm
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMModels      []string
	LLMTemperature float64
	LLMTimeoutSec  int
	RewritePrompt  string

	// scraper
	PagesPerRequest int

	// server
	HealthPort int

	// logging
	LogLevel string
	LogFile  string
}

// modelsFile is the optional YAML catalogue of rewrite models.
type modelsFile struct {
	Models        []string `yaml:"models"`
	DefaultModel  string   `yaml:"default_model"`
	RewritePrompt string   `yaml:"rewrite_prompt"`
}

// Load reads configuration from a .env file (if present) and the
// environment, then merges the optional models file on top.
func Load() (*Config, error) {
	// .env is a convenience for local runs, absence is fine
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://ollama.com/v1"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "gpt-oss:120b-cloud"),
		LLMTemperature:  getEnvFloat("LLM_TEMPERATURE", 1.0),
		LLMTimeoutSec:   getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		RewritePrompt:   getEnv("REWRITE_PROMPT", DefaultRewritePrompt),
		PagesPerRequest: getEnvInt("PAGES_PER_REQUEST", 3),
		HealthPort:      getEnvInt("HEALTH_PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}
	cfg.LLMModels = []string{cfg.LLMModel}

	if path := getEnv("MODELS_FILE", ""); path != "" {
		if err := cfg.applyModelsFile(path); err != nil {
			return nil, fmt.Errorf("models file %s: %w", path, err)
		}
	}

	return cfg, nil
}

// applyModelsFile overlays the YAML model catalogue onto the config.
func (c *Config) applyModelsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var mf modelsFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return err
	}

	if len(mf.Models) > 0 {
		c.LLMModels = mf.Models
	}
	if mf.DefaultModel != "" {
		c.LLMModel = mf.DefaultModel
	}
	if mf.RewritePrompt != "" {
		c.RewritePrompt = mf.RewritePrompt
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
