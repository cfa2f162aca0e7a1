// Package openai provides a structured book extractor backed by an OpenAI-compatible
// chat completions API with image input.
package openai

import (
	"os"
	"time"
)

const (
	// DefaultBaseURL is the public OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is a vision-capable chat model.
	DefaultModel = "gpt-4o-mini"
)

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey  string        // Bearer token
	Model   string        // chat model with image input
	BaseURL string        // e.g. "https://api.openai.com/v1"
	Timeout time.Duration // HTTP request timeout
}

// LoadConfig loads OpenAI configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Timeout: 30 * time.Second,
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return cfg
}
