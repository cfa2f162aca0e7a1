// Package gemini はGoogle Gemini APIを使用した構造化書籍認識クライアントを提供します。
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"shelfscan_backend/internal/feature/bookdetection/adapters/llmprompt"
	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"
	// ProviderName はカスケード・ログで使うプロバイダー名です。
	ProviderName = "gemini"
)

// Config はGeminiクライアントの設定です。APIKey が空の場合はADC（Vertex AI）を使用します。
type Config struct {
	Model  string
	APIKey string
}

// GeminiBookExtractor はGoogle Gemini APIを使用して本棚画像から書籍一覧を抽出します。
type GeminiBookExtractor struct {
	client *genai.Client
	model  string
}

// GeminiBookExtractorがStructuredProviderを実装していることをコンパイル時に検証します。
var _ usecase.StructuredProvider = (*GeminiBookExtractor)(nil)

// NewGeminiBookExtractor はGeminiBookExtractorの新しいインスタンスを生成します。
// APIKey 未指定時は環境変数 GOOGLE_GENAI_USE_VERTEXAI, GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION が必要です。
func NewGeminiBookExtractor(ctx context.Context, cfg Config) (*GeminiBookExtractor, error) {
	var cc *genai.ClientConfig
	if cfg.APIKey != "" {
		cc = &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GeminiBookExtractor{client: client, model: model}, nil
}

// Name はプロバイダー名を返します。
func (g *GeminiBookExtractor) Name() string { return ProviderName }

// ExtractBooks は画像とプロンプトをGeminiに送り、JSON応答を書籍一覧に変換します。
func (g *GeminiBookExtractor) ExtractBooks(ctx context.Context, image []byte) ([]entity.StructuredBook, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, http.DetectContentType(image)),
			genai.NewPartFromText(llmprompt.BookListPrompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, generationConfig())
	if err != nil {
		return nil, classify(fmt.Errorf("gemini API request failed: %w", err))
	}

	books, err := llmprompt.ParseBooks(resp.Text())
	if err != nil {
		return nil, domain.NewTransientError(ProviderName, err)
	}
	return books, nil
}

func generationConfig() *genai.GenerateContentConfig {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"books": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"title":  str,
							"author": str,
							"mood":   str,
						},
						Required: []string{"title"},
					},
				},
			},
			Required: []string{"books"},
		},
	}
}

// classify はGemini APIのエラーをプロバイダーエラーの種別に変換します。
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewProviderErrorForStatus(ProviderName, apiErr.Code, err)
	}
	return domain.NewTransientError(ProviderName, err)
}
