package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
	"shelfscan_backend/internal/shared/textnorm"
)

// mockCatalog はCatalogSearcherインターフェースのモック実装です。
type mockCatalog struct {
	SearchFunc  func(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error)
	SearchCalls int
}

func (m *mockCatalog) Search(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error) {
	m.SearchCalls++
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, limit)
	}
	return nil, errors.New("SearchFunc is not implemented")
}

func catalogReturning(records ...entity.CatalogRecord) *mockCatalog {
	return &mockCatalog{
		SearchFunc: func(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error) {
			return records, nil
		},
	}
}

var goneGirlRecord = entity.CatalogRecord{
	Title:   "Gone Girl",
	Authors: []string{"Gillian Flynn"},
	Identifiers: []entity.Identifier{
		{Type: "ISBN_10", Value: "0307588378"},
		{Type: "ISBN_13", Value: "9780307588371"},
	},
	PageCount:     419,
	Description:   "Marriage can be a real killer.",
	ImageLinks:    entity.ImageLinks{Thumbnail: "http://books.google.com/books/content?id=1"},
	Categories:    []string{"Fiction / Thrillers / Suspense"},
	AverageRating: 4.1,
	PublishedDate: "2012-06-05",
}

func TestMatcher_MatchTitle_ExactMatch(t *testing.T) {
	t.Parallel()

	catalog := catalogReturning(goneGirlRecord)
	m := usecase.NewMatcher(catalog)

	got, err := m.MatchTitle(context.Background(), "Gone Girl")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Gone Girl", got.Query)
	assert.Equal(t, "Gone Girl", got.Title)
	assert.Equal(t, "Gillian Flynn", got.Author)
	assert.InDelta(t, 1.0, got.Score, 1e-9)
	assert.Equal(t, "thrilling", got.Mood)
	assert.Equal(t, entity.CatalogEnrichment{
		ISBN:            "9780307588371",
		Pages:           419,
		Description:     "Marriage can be a real killer.",
		CoverURL:        "https://books.google.com/books/content?id=1",
		Genre:           "Fiction / Thrillers / Suspense",
		AverageRating:   4.1,
		PublicationYear: 2012,
	}, got.Enrichment)
	assert.Equal(t, 1, catalog.SearchCalls)
}

func TestMatcher_MatchTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		records   []entity.CatalogRecord
		wantTitle string
	}{
		{
			name:  "summary of the work is rejected",
			query: "Gone Girl",
			records: []entity.CatalogRecord{
				{Title: "Summary of Gone Girl", Authors: []string{"QuickRead"}},
			},
		},
		{
			name:  "best surviving candidate is chosen after rejecting companions",
			query: "Gone Girl",
			records: []entity.CatalogRecord{
				{Title: "Gone Girl: A Companion", Authors: []string{"Anon"}},
				goneGirlRecord,
			},
			wantTitle: "Gone Girl",
		},
		{
			name:      "short query matches verbatim token",
			query:     "Dune",
			records:   []entity.CatalogRecord{{Title: "Dune", Authors: []string{"Frank Herbert"}}},
			wantTitle: "Dune",
		},
		{
			name:    "short query below threshold is rejected",
			query:   "Dune",
			records: []entity.CatalogRecord{{Title: "Dune Messiah", Authors: []string{"Frank Herbert"}}},
		},
		{
			name:    "short token under four letters is rejected",
			query:   "Cat",
			records: []entity.CatalogRecord{{Title: "Cat"}},
		},
		{
			name:      "long query accepts 0.7",
			query:     "The Hunger Games",
			records:   []entity.CatalogRecord{{Title: "The Hunger Games Trilogy", Authors: []string{"Suzanne Collins"}}},
			wantTitle: "The Hunger Games Trilogy",
		},
		{
			name:    "possessive author prefix removed then fails sanity check",
			query:   "Gillian Flynns Gone Girl",
			records: []entity.CatalogRecord{{Title: "Gillian Flynn's Gone Girl", Authors: []string{"Gillian Flynn"}}},
		},
		{
			name:    "insufficient overlap is rejected",
			query:   "Where the Crawdads Sing",
			records: []entity.CatalogRecord{{Title: "Where Is Everybody"}},
		},
		{
			name:  "empty catalog result is a clean miss",
			query: "XXXXXXXXXX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := usecase.NewMatcher(catalogReturning(tt.records...))

			got, err := m.MatchTitle(context.Background(), tt.query)

			require.NoError(t, err)
			if tt.wantTitle == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestMatcher_MatchTitle_CatalogError(t *testing.T) {
	t.Parallel()

	errCatalog := errors.New("catalog down")
	m := usecase.NewMatcher(&mockCatalog{
		SearchFunc: func(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error) {
			return nil, errCatalog
		},
	})

	got, err := m.MatchTitle(context.Background(), "Gone Girl")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, errCatalog)
}

func TestMatcher_MatchTitle_PassesLimitAndDeadline(t *testing.T) {
	t.Parallel()

	m := usecase.NewMatcher(&mockCatalog{
		SearchFunc: func(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error) {
			assert.Equal(t, 10, limit)
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
			return nil, nil
		},
	}).WithTimeout(2 * time.Second)

	got, err := m.MatchTitle(context.Background(), "Gone Girl")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatcher_ScoreCandidate(t *testing.T) {
	t.Parallel()

	m := usecase.NewMatcher(catalogReturning())
	q := textnorm.Tokenize("Gone Girl")

	summary := m.ScoreCandidate(q, entity.CatalogRecord{Title: "Gone Girl: Key Takeaways"})
	assert.True(t, summary.Rejected)
	assert.Contains(t, summary.RejectReason, "key takeaways")

	exact := m.ScoreCandidate(q, goneGirlRecord)
	assert.False(t, exact.Rejected)
	assert.InDelta(t, 1.0, exact.Score, 1e-9)
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"gone", "girl"}, []string{"girl", "gone"}, 1},
		{"disjoint", []string{"gone", "girl"}, []string{"dune"}, 0},
		{"partial", []string{"dune"}, []string{"dune", "messiah"}, 0.5},
		{"duplicates are sets", []string{"a", "a", "b"}, []string{"a", "b"}, 1},
		{"both empty", nil, nil, 1},
		{"one empty", []string{"dune"}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ab := usecase.Jaccard(tt.a, tt.b)
			ba := usecase.Jaccard(tt.b, tt.a)
			assert.InDelta(t, tt.want, ab, 1e-9)
			assert.InDelta(t, ab, ba, 1e-9)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		})
	}
}
