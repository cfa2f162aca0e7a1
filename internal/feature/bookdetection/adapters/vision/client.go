// Package vision はGoogle Cloud Vision APIを使用したOCRクライアントを提供します。
package vision

import (
	"context"
	"errors"
	"fmt"
	"math"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
)

// ProviderName はカスケード・ログで使うプロバイダー名です。
const ProviderName = "vision"

// annotator は ImageAnnotatorClient のうち本パッケージが使うメソッドです。
type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// VisionTextDetector はGoogle Cloud Vision APIの TEXT_DETECTION で文字と単語の位置を取得します。
type VisionTextDetector struct {
	client annotator
}

// VisionTextDetectorがOCRProviderを実装していることをコンパイル時に検証します。
var _ usecase.OCRProvider = (*VisionTextDetector)(nil)

// NewVisionTextDetector はADCを使用してVisionTextDetectorの新しいインスタンスを生成します。
func NewVisionTextDetector(ctx context.Context) (*VisionTextDetector, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionTextDetector{client: client}, nil
}

// Close はVision APIクライアントを解放します。
func (v *VisionTextDetector) Close() error {
	return v.client.Close()
}

// Name はプロバイダー名を返します。
func (v *VisionTextDetector) Name() string { return ProviderName }

// ExtractText は画像バイト列から全文テキストと単語ブロックを抽出します。
func (v *VisionTextDetector) ExtractText(ctx context.Context, image []byte) (entity.OCRResult, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return entity.OCRResult{}, classify(fmt.Errorf("vision API request failed: %w", err))
	}

	if len(resp.Responses) == 0 {
		return entity.OCRResult{}, nil
	}

	r := resp.Responses[0]
	if r.Error != nil {
		err := fmt.Errorf("vision API error: %s", r.Error.GetMessage())
		return entity.OCRResult{}, classifyCode(codes.Code(r.Error.GetCode()), err)
	}

	return toOCRResult(r.TextAnnotations), nil
}

// toOCRResult は TEXT_DETECTION の結果を変換します。先頭要素は全文、以降は単語単位の注釈です。
func toOCRResult(annotations []*visionpb.EntityAnnotation) entity.OCRResult {
	if len(annotations) == 0 {
		return entity.OCRResult{}
	}

	result := entity.OCRResult{
		Text:   annotations[0].GetDescription(),
		Blocks: make([]entity.TextBlock, 0, len(annotations)-1),
	}
	for _, a := range annotations[1:] {
		result.Blocks = append(result.Blocks, entity.TextBlock{
			Text:       a.GetDescription(),
			Box:        boundingBox(a.GetBoundingPoly()),
			Confidence: a.GetConfidence(),
		})
	}
	return result
}

// boundingBox は多角形の頂点から外接矩形を計算します。頂点がなければゼロ矩形です。
func boundingBox(poly *visionpb.BoundingPoly) entity.BoundingBox {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return entity.BoundingBox{}
	}

	box := entity.BoundingBox{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, vx := range vertices {
		x, y := float64(vx.GetX()), float64(vx.GetY())
		box.MinX = math.Min(box.MinX, x)
		box.MinY = math.Min(box.MinY, y)
		box.MaxX = math.Max(box.MaxX, x)
		box.MaxY = math.Max(box.MaxY, y)
	}
	return box
}

// classify はgRPCエラーのステータスコードでプロバイダーエラーの種別を決めます。
func classify(err error) error {
	var grpcErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &grpcErr) {
		return classifyCode(grpcErr.GRPCStatus().Code(), err)
	}
	return domain.NewTransientError(ProviderName, err)
}

func classifyCode(code codes.Code, err error) error {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return domain.NewAuthError(ProviderName, err)
	case codes.ResourceExhausted:
		return domain.NewRateLimitedError(ProviderName, err)
	default:
		return domain.NewTransientError(ProviderName, err)
	}
}
