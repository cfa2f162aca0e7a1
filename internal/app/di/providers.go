package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"shelfscan_backend/internal/feature/bookdetection/adapters/gemini"
	"shelfscan_backend/internal/feature/bookdetection/adapters/openai"
	"shelfscan_backend/internal/feature/bookdetection/adapters/tesseract"
	"shelfscan_backend/internal/feature/bookdetection/adapters/vision"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
	infrahttp "shelfscan_backend/internal/platform/http"
)

// ErrNoProviders is returned when no recognition provider could be configured.
var ErrNoProviders = errors.New("no recognition providers configured")

// providerFactories lets tests replace the SDK-backed constructors.
type providerFactories struct {
	gemini    func(ctx context.Context, cfg gemini.Config) (usecase.StructuredProvider, error)
	openai    func(cfg openai.Config) usecase.StructuredProvider
	vision    func(ctx context.Context) (usecase.OCRProvider, func() error, error)
	tesseract func(langs ...string) (usecase.OCRProvider, error)
}

var defaultFactories = providerFactories{
	gemini: func(ctx context.Context, cfg gemini.Config) (usecase.StructuredProvider, error) {
		g, err := gemini.NewGeminiBookExtractor(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	openai: func(cfg openai.Config) usecase.StructuredProvider {
		return openai.NewOpenAIBookExtractor(cfg, infrahttp.NewHTTPClient(cfg.Timeout))
	},
	vision: func(ctx context.Context) (usecase.OCRProvider, func() error, error) {
		v, err := vision.NewVisionTextDetector(ctx)
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil
	},
	tesseract: func(langs ...string) (usecase.OCRProvider, error) {
		t, err := tesseract.NewTesseractTextDetector(langs...)
		if err != nil {
			return nil, err
		}
		return t, nil
	},
}

// NewProviderSpecs builds the recognition cascade in priority order:
// Gemini (3 attempts), OpenAI (when OPENAI_API_KEY is set), then the configured OCR engine.
// Providers that fail to initialize are logged and skipped.
// The returned closer releases SDK clients.
func NewProviderSpecs(ctx context.Context, cfg Config) ([]usecase.ProviderSpec, func(), error) {
	return buildProviderSpecs(ctx, cfg, openai.LoadConfig(), defaultFactories)
}

func buildProviderSpecs(ctx context.Context, cfg Config, oaCfg openai.Config, f providerFactories) ([]usecase.ProviderSpec, func(), error) {
	var (
		specs   []usecase.ProviderSpec
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("failed to close provider client", "error", err)
			}
		}
	}

	if p, err := f.gemini(ctx, gemini.Config{Model: cfg.GeminiModel, APIKey: cfg.GeminiAPIKey}); err != nil {
		slog.Warn("Gemini provider unavailable, skipping", "error", err)
	} else {
		specs = append(specs, usecase.ProviderSpec{
			Provider:        p,
			MaxAttempts:     usecase.MaxProviderAttempts,
			RateLimitShared: true,
			RequiresAuth:    true,
		})
	}

	if oaCfg.APIKey != "" {
		specs = append(specs, usecase.ProviderSpec{
			Provider:        f.openai(oaCfg),
			MaxAttempts:     1,
			RateLimitShared: true,
			RequiresAuth:    true,
		})
	} else {
		slog.Info("OPENAI_API_KEY not set, OpenAI provider disabled")
	}

	switch cfg.OCREngine {
	case OCREngineVision:
		if p, closer, err := f.vision(ctx); err != nil {
			slog.Warn("Cloud Vision provider unavailable, skipping", "error", err)
		} else {
			closers = append(closers, closer)
			specs = append(specs, usecase.ProviderSpec{
				Provider:        p,
				MaxAttempts:     2,
				RateLimitShared: true,
				RequiresAuth:    true,
			})
		}
	case OCREngineTesseract:
		if p, err := f.tesseract(cfg.TesseractLangs...); err != nil {
			slog.Warn("Tesseract provider unavailable, skipping", "error", err)
		} else {
			specs = append(specs, usecase.ProviderSpec{Provider: p, MaxAttempts: 1})
		}
	case OCREngineNone:
	default:
		closeAll()
		return nil, nil, fmt.Errorf("unsupported OCR_ENGINE %q", cfg.OCREngine)
	}

	if len(specs) == 0 {
		closeAll()
		return nil, nil, ErrNoProviders
	}
	return specs, closeAll, nil
}
