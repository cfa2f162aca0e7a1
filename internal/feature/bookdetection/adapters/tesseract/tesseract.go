//go:build tesseract

// Package tesseract はローカルのTesseractを使用したOCRクライアントを提供します。
// libtesseract が必要なため `tesseract` ビルドタグ付きでのみコンパイルされます。
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
)

// TesseractTextDetector は gosseract で単語単位の文字と位置を取得します。
type TesseractTextDetector struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

var _ usecase.OCRProvider = (*TesseractTextDetector)(nil)

// NewTesseractTextDetector はTesseractTextDetectorを生成します。languages が空なら "eng" を使います。
func NewTesseractTextDetector(languages ...string) (*TesseractTextDetector, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractTextDetector{clientFactory: gosseract.NewClient, languages: languages}, nil
}

// Name はプロバイダー名を返します。
func (t *TesseractTextDetector) Name() string { return ProviderName }

// ExtractText は画像から全文テキストと単語ブロックを抽出します。
func (t *TesseractTextDetector) ExtractText(ctx context.Context, image []byte) (entity.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return entity.OCRResult{}, err
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(t.languages...); err != nil {
		return entity.OCRResult{}, domain.NewTransientError(ProviderName, fmt.Errorf("set languages: %w", err))
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return entity.OCRResult{}, domain.NewTransientError(ProviderName, fmt.Errorf("set image: %w", err))
	}

	text, err := c.Text()
	if err != nil {
		return entity.OCRResult{}, domain.NewTransientError(ProviderName, fmt.Errorf("recognize text: %w", err))
	}

	result := entity.OCRResult{Text: strings.TrimSpace(text)}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, nil
	}
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		result.Blocks = append(result.Blocks, entity.TextBlock{
			Text: b.Word,
			Box: entity.BoundingBox{
				MinX: float64(b.Box.Min.X),
				MinY: float64(b.Box.Min.Y),
				MaxX: float64(b.Box.Max.X),
				MaxY: float64(b.Box.Max.Y),
			},
			Confidence: float32(b.Confidence / 100.0),
		})
	}

	if err := ctx.Err(); err != nil {
		return entity.OCRResult{}, err
	}
	return result, nil
}
