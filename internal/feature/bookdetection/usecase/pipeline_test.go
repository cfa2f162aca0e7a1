package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
)

// mockDetector はBookDetectorインターフェースのモック実装です。
type mockDetector struct {
	DetectFunc  func(ctx context.Context, image []byte) (usecase.CascadeResult, error)
	DetectCalls int
}

func (m *mockDetector) Detect(ctx context.Context, image []byte) (usecase.CascadeResult, error) {
	m.DetectCalls++
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, image)
	}
	return usecase.CascadeResult{}, errors.New("DetectFunc is not implemented")
}

// mockBatchMatcher はBatchMatcherインターフェースのモック実装です。
type mockBatchMatcher struct {
	MatchAllFunc func(ctx context.Context, titles []string) entity.BatchResult
	Titles       []string
}

func (m *mockBatchMatcher) MatchAll(ctx context.Context, titles []string) entity.BatchResult {
	m.Titles = titles
	if m.MatchAllFunc != nil {
		return m.MatchAllFunc(ctx, titles)
	}
	return entity.BatchResult{Unmatched: titles}
}

func detectorReturning(res usecase.CascadeResult) *mockDetector {
	return &mockDetector{DetectFunc: func(context.Context, []byte) (usecase.CascadeResult, error) { return res, nil }}
}

func TestPipeline_DetectBooksFromImage_InvalidImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		image []byte
	}{
		{"empty", []byte{}},
		{"oversized", make([]byte, usecase.MaxImageSize+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			det := &mockDetector{}
			p := usecase.NewPipeline(det, nil)

			_, err := p.DetectBooksFromImage(context.Background(), tt.image)

			assert.ErrorIs(t, err, domain.ErrInvalidImage)
			assert.Equal(t, 0, det.DetectCalls)
		})
	}
}

func TestPipeline_DetectBooksFromImage_Structured(t *testing.T) {
	t.Parallel()

	batch := &mockBatchMatcher{}
	p := usecase.NewPipeline(detectorReturning(usecase.CascadeResult{
		Provider: "gemini",
		Books: []entity.StructuredBook{
			{Title: "Gone Girl", Author: "Gillian Flynn", Mood: "thrilling"},
			{Title: "Circe"},
		},
	}), batch)

	got, err := p.DetectBooksFromImage(context.Background(), testImage)

	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, "gemini", got.ProviderUsed)
	require.Len(t, got.Books, 2)
	require.NotNil(t, got.Books[0].Author)
	assert.Equal(t, "Gillian Flynn", *got.Books[0].Author)
	assert.Equal(t, entity.ProvenanceStructured, got.Books[0].Provenance)
	assert.Equal(t, "thrilling", got.Books[0].Mood)
	assert.Nil(t, got.Books[1].Author)
	assert.Equal(t, usecase.DefaultMood, got.Books[1].Mood)
	assert.Nil(t, batch.Titles, "structured results skip catalog matching")
}

func TestPipeline_DetectBooksFromImage_OCRWithSpines(t *testing.T) {
	t.Parallel()

	ocr := entity.OCRResult{
		Text: "Gone Girl:\nA Novel\nGILLIAN FLYNN\nThe Seven Husbands of Evelyn Hugo",
		Blocks: []entity.TextBlock{
			block("A Novel", 0, 60, 100, 110),
			block("Gone Girl:", 0, 0, 100, 50),
			block("GILLIAN FLYNN", 300, 0, 400, 50),
			block("The Seven Husbands of Evelyn Hugo", 600, 0, 700, 50),
		},
	}
	batch := &mockBatchMatcher{MatchAllFunc: func(_ context.Context, titles []string) entity.BatchResult {
		return entity.BatchResult{
			Matched: []entity.MatchResult{{
				Query:      "Gone Girl: A Novel",
				Title:      "Gone Girl",
				Author:     "Gillian Flynn",
				Score:      0.8,
				Mood:       "thrilling",
				Enrichment: entity.CatalogEnrichment{ISBN: "9780307588371"},
			}},
			Unmatched: []string{"Seven Husbands of Evelyn Hugo"},
		}
	}}
	p := usecase.NewPipeline(detectorReturning(usecase.CascadeResult{Provider: "vision", OCR: &ocr}), batch)

	got, err := p.DetectBooksFromImage(context.Background(), testImage)

	require.NoError(t, err)
	assert.Equal(t, "vision", got.ProviderUsed)
	assert.Equal(t, []string{"Gone Girl: A Novel", "Seven Husbands of Evelyn Hugo"}, batch.Titles)
	require.Len(t, got.Books, 2)

	matched := got.Books[0]
	assert.Equal(t, "Gone Girl", matched.Title)
	require.NotNil(t, matched.Author)
	assert.Equal(t, "Gillian Flynn", *matched.Author)
	assert.Equal(t, entity.ProvenanceOCRCatalog, matched.Provenance)
	assert.Equal(t, "Gone Girl: A Novel", matched.SpineText)
	require.NotNil(t, matched.Enrichment)
	assert.Equal(t, "9780307588371", matched.Enrichment.ISBN)

	unmatched := got.Books[1]
	assert.Equal(t, "Seven Husbands of Evelyn Hugo", unmatched.Title)
	assert.Nil(t, unmatched.Author)
	assert.Equal(t, entity.ProvenanceOCR, unmatched.Provenance)
	assert.Nil(t, unmatched.Enrichment)
}

func TestPipeline_DetectBooksFromImage_OCRLinesWithoutEnrichment(t *testing.T) {
	t.Parallel()

	ocr := entity.OCRResult{Text: "GILLIAN FLYNN\nGone Girl: A Novel\nPENGUIN"}
	p := usecase.NewPipeline(detectorReturning(usecase.CascadeResult{Provider: "tesseract", OCR: &ocr}), nil)

	got, err := p.DetectBooksFromImage(context.Background(), testImage)

	require.NoError(t, err)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "Gone Girl: A Novel", got.Books[0].Title)
	assert.Equal(t, entity.ProvenanceOCR, got.Books[0].Provenance)
	assert.Equal(t, "tesseract", got.Books[0].Provider)
}

func TestPipeline_DetectBooksFromImage_NoTitles(t *testing.T) {
	t.Parallel()

	ocr := entity.OCRResult{Text: "GILLIAN FLYNN\nISBN 978-0-307-58836-4\n$12.99"}
	p := usecase.NewPipeline(detectorReturning(usecase.CascadeResult{Provider: "vision", OCR: &ocr}), &mockBatchMatcher{})

	_, err := p.DetectBooksFromImage(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.ErrNoTitlesExtracted)
}

func TestPipeline_DetectBooksFromImage_DetectorError(t *testing.T) {
	t.Parallel()

	p := usecase.NewPipeline(&mockDetector{DetectFunc: func(context.Context, []byte) (usecase.CascadeResult, error) {
		return usecase.CascadeResult{}, domain.ErrNoTextDetected
	}}, nil)

	_, err := p.DetectBooksFromImage(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.ErrNoTextDetected)
	assert.NotErrorIs(t, err, domain.ErrPipelineTimeout)
}

func TestPipeline_DetectBooksFromImage_Timeout(t *testing.T) {
	t.Parallel()

	p := usecase.NewPipeline(&mockDetector{DetectFunc: func(ctx context.Context, _ []byte) (usecase.CascadeResult, error) {
		<-ctx.Done()
		return usecase.CascadeResult{}, ctx.Err()
	}}, nil).WithTimeout(10 * time.Millisecond)

	_, err := p.DetectBooksFromImage(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.ErrPipelineTimeout)
	assert.Equal(t, "timeout", domain.Describe(err).Kind)
}

func TestPipeline_Enrich(t *testing.T) {
	t.Parallel()

	batch := &mockBatchMatcher{MatchAllFunc: func(_ context.Context, titles []string) entity.BatchResult {
		return entity.BatchResult{Matched: []entity.MatchResult{{Query: "Dune", Title: "Dune"}}, Unmatched: []string{"XXXXXXXXXX"}}
	}}
	p := usecase.NewPipeline(&mockDetector{}, batch)

	got := p.Enrich(context.Background(), []string{"Dune", "XXXXXXXXXX"})

	assert.Len(t, got.Matched, 1)
	assert.Equal(t, []string{"XXXXXXXXXX"}, got.Unmatched)

	noCatalog := usecase.NewPipeline(&mockDetector{}, nil).Enrich(context.Background(), []string{"Dune"})
	assert.Empty(t, noCatalog.Matched)
	assert.Equal(t, []string{"Dune"}, noCatalog.Unmatched)
}
