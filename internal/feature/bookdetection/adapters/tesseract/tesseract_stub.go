//go:build !tesseract

// Package tesseract はローカルのTesseractを使用したOCRクライアントを提供します。
// `tesseract` ビルドタグなしでビルドした場合、コンストラクタは ErrUnavailable を返します。
package tesseract

import (
	"context"
	"errors"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
)

// ErrUnavailable はTesseract対応なしでビルドされたことを示します。
var ErrUnavailable = errors.New("tesseract support not compiled in (build with -tags tesseract)")

// TesseractTextDetector はタグなしビルドでのプレースホルダーです。
type TesseractTextDetector struct{}

var _ usecase.OCRProvider = (*TesseractTextDetector)(nil)

// NewTesseractTextDetector は常に ErrUnavailable を返します。
func NewTesseractTextDetector(languages ...string) (*TesseractTextDetector, error) {
	return nil, ErrUnavailable
}

// Name はプロバイダー名を返します。
func (t *TesseractTextDetector) Name() string { return ProviderName }

// ExtractText は常に一時的エラーを返します。
func (t *TesseractTextDetector) ExtractText(context.Context, []byte) (entity.OCRResult, error) {
	return entity.OCRResult{}, domain.NewTransientError(ProviderName, ErrUnavailable)
}
