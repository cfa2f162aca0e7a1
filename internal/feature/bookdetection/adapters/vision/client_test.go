package vision

import (
	"context"
	"errors"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
)

// mockAnnotator はannotatorインターフェースのモック実装です。
type mockAnnotator struct {
	resp *visionpb.BatchAnnotateImagesResponse
	err  error
	req  *visionpb.BatchAnnotateImagesRequest
}

func (m *mockAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	m.req = req
	return m.resp, m.err
}

func (m *mockAnnotator) Close() error { return nil }

func poly(pts ...int32) *visionpb.BoundingPoly {
	p := &visionpb.BoundingPoly{}
	for i := 0; i+1 < len(pts); i += 2 {
		p.Vertices = append(p.Vertices, &visionpb.Vertex{X: pts[i], Y: pts[i+1]})
	}
	return p
}

func TestVisionTextDetector_ExtractText(t *testing.T) {
	t.Parallel()

	m := &mockAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			TextAnnotations: []*visionpb.EntityAnnotation{
				{Description: "Gone\nGirl", BoundingPoly: poly(0, 0, 100, 0, 100, 120, 0, 120)},
				{Description: "Gone", BoundingPoly: poly(10, 0, 90, 0, 90, 50, 10, 50)},
				{Description: "Girl", BoundingPoly: poly(12, 60, 88, 60, 88, 110, 12, 110)},
			},
		}},
	}}
	v := &VisionTextDetector{client: m}

	got, err := v.ExtractText(context.Background(), []byte("img"))

	require.NoError(t, err)
	assert.Equal(t, "Gone\nGirl", got.Text)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, entity.BoundingBox{MinX: 10, MinY: 0, MaxX: 90, MaxY: 50}, got.Blocks[0].Box)
	assert.Equal(t, "Girl", got.Blocks[1].Text)
	assert.Equal(t, visionpb.Feature_TEXT_DETECTION, m.req.Requests[0].Features[0].Type)
	assert.Equal(t, []byte("img"), m.req.Requests[0].Image.Content)
}

func TestVisionTextDetector_ExtractText_Empty(t *testing.T) {
	t.Parallel()

	v := &VisionTextDetector{client: &mockAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{}},
	}}}

	got, err := v.ExtractText(context.Background(), []byte("img"))

	require.NoError(t, err)
	assert.Empty(t, got.Text)
	assert.False(t, got.HasGeometry())
}

func TestVisionTextDetector_ExtractText_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    *mockAnnotator
		want domain.ErrorKind
	}{
		{"unauthenticated", &mockAnnotator{err: status.Error(codes.Unauthenticated, "no creds")}, domain.KindAuth},
		{"permission denied", &mockAnnotator{err: status.Error(codes.PermissionDenied, "api disabled")}, domain.KindAuth},
		{"quota", &mockAnnotator{err: status.Error(codes.ResourceExhausted, "quota")}, domain.KindRateLimited},
		{"unavailable", &mockAnnotator{err: status.Error(codes.Unavailable, "down")}, domain.KindTransient},
		{"plain error", &mockAnnotator{err: errors.New("dial tcp")}, domain.KindTransient},
		{"per-image error", &mockAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{Error: &statuspb.Status{Code: int32(codes.ResourceExhausted), Message: "quota"}}},
		}}, domain.KindRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := &VisionTextDetector{client: tt.m}

			_, err := v.ExtractText(context.Background(), []byte("img"))

			require.Error(t, err)
			assert.Equal(t, tt.want, domain.KindOf(err))
		})
	}
}

func TestBoundingBox_NoVertices(t *testing.T) {
	t.Parallel()

	assert.Equal(t, entity.BoundingBox{}, boundingBox(nil))
}
