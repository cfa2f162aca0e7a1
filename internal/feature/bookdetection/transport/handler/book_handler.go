// Package handler はbookdetectionフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/transport/http/dto"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
)

// MaxEnrichTitles は1回の照合リクエストで受け付ける書名の上限です。
const MaxEnrichTitles = 100

// BookDetectionUsecase は書籍検出・照合のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type BookDetectionUsecase interface {
	DetectBooksFromImage(ctx context.Context, image []byte) (entity.DetectionResult, error)
	Enrich(ctx context.Context, titles []string) entity.BatchResult
}

// BookHandler は書籍検出・照合のHTTPリクエストを処理します。
type BookHandler struct {
	uc BookDetectionUsecase
}

// NewBookHandler はBookHandlerの新しいインスタンスを生成します。
func NewBookHandler(uc BookDetectionUsecase) *BookHandler {
	return &BookHandler{uc: uc}
}

// Detect は本棚の写真をアップロードして書籍を検出します。
//
// エンドポイント: POST /v1/books/detect
// Content-Type: multipart/form-data
// フィールド: image（画像ファイル、最大10MB）
func (h *BookHandler) Detect(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		slog.Warn("画像ファイルの取得に失敗", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "画像ファイルが必要です"})
		return
	}
	if file.Size > usecase.MaxImageSize {
		slog.Warn("画像ファイルが大きすぎます", "size", file.Size, "remote_addr", c.ClientIP())
		h.fail(c, domain.ErrInvalidImage)
		return
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("画像ファイルのオープンに失敗", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "画像の読み込みに失敗しました"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("画像ファイルのクローズに失敗", "error", err)
		}
	}()

	image, err := io.ReadAll(io.LimitReader(f, usecase.MaxImageSize+1))
	if err != nil {
		slog.Error("画像データの読み取りに失敗", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "画像の読み込みに失敗しました"})
		return
	}

	result, err := h.uc.DetectBooksFromImage(c.Request.Context(), image)
	if err != nil {
		h.fail(c, err)
		return
	}
	if result.Books == nil {
		result.Books = []entity.DetectedBook{}
	}
	c.JSON(http.StatusOK, result)
}

// Enrich は書名のリストをカタログと照合します。
//
// エンドポイント: POST /v1/books/enrich
// Content-Type: application/json
func (h *BookHandler) Enrich(c *gin.Context) {
	var req dto.EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("照合リクエストのバリデーションに失敗", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "titlesが必要です"})
		return
	}

	titles := make([]string, 0, len(req.Titles))
	for _, t := range req.Titles {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	switch {
	case len(titles) == 0:
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "titlesが空です"})
		return
	case len(titles) > MaxEnrichTitles:
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "titlesは" + strconv.Itoa(MaxEnrichTitles) + "件以内にしてください"})
		return
	}

	c.JSON(http.StatusOK, h.uc.Enrich(c.Request.Context(), titles))
}

// fail はパイプラインのエラーをHTTPステータスとユーザー向けメッセージに変換します。
func (h *BookHandler) fail(c *gin.Context, err error) {
	info := domain.Describe(err)
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		slog.Error("書籍検出に失敗", "error", err, "kind", info.Kind)
	} else {
		slog.Warn("書籍検出に失敗", "error", err, "kind", info.Kind)
	}

	if status == http.StatusTooManyRequests && info.RetryAfter > 0 {
		secs := int(math.Ceil(info.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
	}
	c.JSON(status, dto.DetectFailureResponse{
		Success:    false,
		Kind:       info.Kind,
		Error:      info.Message,
		Suggestion: info.Suggestion,
		Retryable:  info.Retryable,
	})
}

func statusFor(err error) int {
	var rl *domain.RateLimitedError
	switch {
	case errors.As(err, &rl):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoTextDetected), errors.Is(err, domain.ErrNoTitlesExtracted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}
