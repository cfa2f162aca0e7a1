package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"shelfscan_backend/internal/feature/bookdetection/adapters/llmprompt"
	"shelfscan_backend/internal/feature/bookdetection/adapters/openai/dto"
	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
)

// ProviderName is the name used in cascade logs and provenance.
const ProviderName = "openai"

var errMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// OpenAIBookExtractor implements usecase.StructuredProvider over chat completions.
type OpenAIBookExtractor struct {
	cfg    Config
	client *http.Client
}

var _ usecase.StructuredProvider = (*OpenAIBookExtractor)(nil)

// NewOpenAIBookExtractor creates an extractor with the given config and HTTP client.
func NewOpenAIBookExtractor(cfg Config, client *http.Client) *OpenAIBookExtractor {
	return &OpenAIBookExtractor{cfg: cfg, client: client}
}

// Name returns the provider name.
func (o *OpenAIBookExtractor) Name() string { return ProviderName }

// ExtractBooks sends the image with the shared book-list prompt and parses the JSON reply.
func (o *OpenAIBookExtractor) ExtractBooks(ctx context.Context, image []byte) ([]entity.StructuredBook, error) {
	if o.cfg.APIKey == "" {
		return nil, domain.NewAuthError(ProviderName, errMissingAPIKey)
	}

	body, err := json.Marshal(o.buildRequest(image))
	if err != nil {
		return nil, domain.NewTransientError(ProviderName, fmt.Errorf("marshal request: %w", err))
	}

	u := strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewTransientError(ProviderName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	res, err := o.client.Do(req)
	if err != nil {
		return nil, domain.NewTransientError(ProviderName, fmt.Errorf("send request: %w", err))
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return nil, domain.NewProviderErrorForStatus(ProviderName, res.StatusCode, statusError(res))
	}

	var chat dto.ChatResponse
	if err := json.NewDecoder(res.Body).Decode(&chat); err != nil {
		return nil, domain.NewTransientError(ProviderName, fmt.Errorf("decode response: %w", err))
	}
	if len(chat.Choices) == 0 {
		return nil, domain.NewTransientError(ProviderName, errors.New("no choices returned"))
	}

	books, err := llmprompt.ParseBooks(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, domain.NewTransientError(ProviderName, err)
	}
	return books, nil
}

func (o *OpenAIBookExtractor) buildRequest(image []byte) dto.ChatRequest {
	dataURL := fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(image), base64.StdEncoding.EncodeToString(image))
	return dto.ChatRequest{
		Model: o.cfg.Model,
		Messages: []dto.Message{{
			Role: "user",
			Content: []dto.ContentPart{
				{Type: "text", Text: llmprompt.BookListPrompt},
				{Type: "image_url", ImageURL: &dto.ImageURL{URL: dataURL}},
			},
		}},
		ResponseFormat: &dto.ResponseFormat{Type: "json_object"},
		Temperature:    0,
	}
}

func statusError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var e dto.ErrorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("openai http %d: %s", res.StatusCode, e.Error.Message)
	}
	return fmt.Errorf("openai http %d", res.StatusCode)
}
