package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
)

func TestCleanMatchedTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  entity.CatalogRecord
		want string
	}{
		{"date suffix", entity.CatalogRecord{Title: "The Martian (2014-02-11)"}, "The Martian"},
		{"full author possessive", entity.CatalogRecord{Title: "Gillian Flynn's Gone Girl", Authors: []string{"Gillian Flynn"}}, "Gone Girl"},
		{"last name possessive", entity.CatalogRecord{Title: "Flynn's Gone Girl", Authors: []string{"Gillian Flynn"}}, "Gone Girl"},
		{"unrelated possessive kept", entity.CatalogRecord{Title: "Charlotte's Web", Authors: []string{"E. B. White"}}, "Charlotte's Web"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanMatchedTitle(tt.rec))
		})
	}
}

func TestRequiredOverlap(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	assert.Equal(t, 1, m.requiredOverlap(1))
	assert.Equal(t, 2, m.requiredOverlap(2))
	assert.Equal(t, 2, m.requiredOverlap(3))
	assert.Equal(t, 4, m.requiredOverlap(6))
}

func TestAcceptThreshold(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	tests := []struct {
		name   string
		tokens []string
		want   float64
	}{
		{"three distinct tokens", []string{"new", "york", "city"}, DefaultMatchThresholds.LongQueryThreshold},
		{"repeated token counts once", []string{"new", "new", "york"}, DefaultMatchThresholds.ShortQueryThreshold},
		{"single token", []string{"dune"}, DefaultMatchThresholds.ShortQueryThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, m.acceptThreshold(tt.tokens))
		})
	}
}

func TestScoreCandidate_RepeatedShortToken(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	cand := m.ScoreCandidate([]string{"it", "it"}, entity.CatalogRecord{Title: "It Ends with Us"})

	assert.True(t, cand.Rejected)
	assert.Equal(t, "short query token not present", cand.RejectReason)
}

func TestPickISBN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0307588378", pickISBN([]entity.Identifier{{Type: "ISBN_10", Value: "0307588378"}}))
	assert.Equal(t, "", pickISBN([]entity.Identifier{{Type: "OTHER", Value: "x"}}))
	assert.Equal(t, 0, publicationYear("n.d."))
	assert.Equal(t, 1965, publicationYear("1965"))
}
