// Package googlebooks provides a catalog client for the Google Books volumes API.
package googlebooks

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultTimeout       = 6 * time.Second
	defaultRatePerMinute = 60
)

// Config holds configuration for the Google Books client.
type Config struct {
	APIKey        string        // optional; anonymous quota is used when empty
	BaseURL       string        // overrides the service base path, e.g. "https://books.googleapis.com/"
	Timeout       time.Duration // HTTP request timeout
	RatePerMinute int           // client-side request budget
}

// LoadConfig loads Google Books configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		APIKey:        os.Getenv("GOOGLE_BOOKS_API_KEY"),
		BaseURL:       os.Getenv("GOOGLE_BOOKS_BASE_URL"),
		Timeout:       defaultTimeout,
		RatePerMinute: defaultRatePerMinute,
	}
	if d, err := time.ParseDuration(os.Getenv("CATALOG_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("CATALOG_RATE_PER_MINUTE")); err == nil && n >= 0 {
		cfg.RatePerMinute = n
	}
	return cfg
}
