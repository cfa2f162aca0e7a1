// Package di provides dependency injection factories for creating application components.
package di

import (
	"os"
	"strconv"
	"strings"
	"time"

	"shelfscan_backend/internal/feature/bookdetection/adapters/gemini"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
	"shelfscan_backend/internal/platform/db"
	infraredis "shelfscan_backend/internal/platform/redis"
)

// OCR engines selectable through OCR_ENGINE.
const (
	OCREngineVision    = "vision"
	OCREngineTesseract = "tesseract"
	OCREngineNone      = "none"
)

const defaultCacheTTL = 24 * time.Hour

// Config is the application-level configuration. Adapter-specific settings
// (OpenAI, Google Books) are loaded by the adapters' own LoadConfig.
type Config struct {
	Port             string
	GeminiModel      string
	GeminiAPIKey     string
	OCREngine        string
	TesseractLangs   []string
	CacheTTL         time.Duration
	PipelineTimeout  time.Duration
	ProviderCooldown time.Duration
	BatchConcurrency int
	BatchPacing      time.Duration
	Enrichment       bool
	LogLevel         string
	LogFormat        string

	Redis     infraredis.Config
	DB        db.Config
	DBEnabled bool
}

// LoadConfig loads the application configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		Port:             envOr("PORT", "8080"),
		GeminiModel:      envOr("GEMINI_MODEL", gemini.DefaultModel),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OCREngine:        strings.ToLower(envOr("OCR_ENGINE", OCREngineVision)),
		TesseractLangs:   splitList(envOr("TESSERACT_LANGS", "eng")),
		CacheTTL:         durationOr("CACHE_TTL", defaultCacheTTL),
		PipelineTimeout:  durationOr("PIPELINE_TIMEOUT", usecase.DefaultPipelineTimeout),
		ProviderCooldown: durationOr("PROVIDER_COOLDOWN", usecase.DefaultCooldown),
		BatchConcurrency: intOr("BATCH_CONCURRENCY", usecase.DefaultBatchConcurrency),
		BatchPacing:      durationOr("BATCH_PACING", usecase.DefaultBatchPacing),
		Enrichment:       os.Getenv("ENRICHMENT") != "false",
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "text"),
		Redis:            infraredis.LoadConfig(),
		DB:               db.LoadConfigFromEnv(),
	}
	// The SQL lookup cache is opt-in: any explicit DB setting enables it.
	cfg.DBEnabled = os.Getenv("DB_DRIVER") != "" || os.Getenv("DATABASE_URL") != "" || os.Getenv("SQLITE_PATH") != ""
	return cfg
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func intOr(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '+' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
