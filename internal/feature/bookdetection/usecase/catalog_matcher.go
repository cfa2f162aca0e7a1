package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/shared/textnorm"
)

// CatalogSearcher は外部の書誌カタログ検索を抽象化するインターフェースです。
type CatalogSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error)
}

// TitleMatcher は1件の書名をカタログと照合するインターフェースです。
type TitleMatcher interface {
	MatchTitle(ctx context.Context, query string) (*entity.MatchResult, error)
}

// MatchThresholds は照合時の経験的な閾値です。
type MatchThresholds struct {
	LongQueryMinTokens  int
	LongQueryThreshold  float64
	ShortQueryThreshold float64
	MinOverlapRatio     float64
	MinOverlapTokens    int
	ShortTokenMinLength int
	QueryCoverage       float64
	ResultCoverage      float64
	MaxCandidates       int
}

// DefaultMatchThresholds はカタログ照合の既定値です。
var DefaultMatchThresholds = MatchThresholds{
	LongQueryMinTokens:  3,
	LongQueryThreshold:  0.7,
	ShortQueryThreshold: 0.85,
	MinOverlapRatio:     0.66,
	MinOverlapTokens:    2,
	ShortTokenMinLength: 4,
	QueryCoverage:       0.7,
	ResultCoverage:      0.5,
	MaxCandidates:       10,
}

// DefaultLookupTimeout は1回のカタログ検索のタイムアウトです。
const DefaultLookupTimeout = 6 * time.Second

// nonOriginalMarkers は要約・解説本など原著ではない候補を示すキーワードです。
var nonOriginalMarkers = []string{
	"summary",
	"study guide",
	"companion",
	"workbook",
	"analysis",
	"key takeaways",
	"sparknotes",
	"cliffsnotes",
	"cliff notes",
	"reader's guide",
	"readers guide",
	"discussion guide",
	"trivia",
	"quiz",
	"boxed set",
	"box set",
	"collection set",
}

var (
	dateSuffix       = regexp.MustCompile(`\s*\(\d{4}-\d{2}-\d{2}\)\s*$`)
	leadingDigits    = regexp.MustCompile(`^\d{4}`)
	possessivePrefix = regexp.MustCompile(`^(.+?)(?:'s|’s)\s+(.+)$`)
)

// Matcher は CatalogSearcher の検索結果をトークン集合の類似度で評価する照合器です。
type Matcher struct {
	catalog    CatalogSearcher
	thresholds MatchThresholds
	timeout    time.Duration
}

// NewMatcher は既定の閾値とタイムアウトで Matcher を生成します。
func NewMatcher(catalog CatalogSearcher) *Matcher {
	return &Matcher{
		catalog:    catalog,
		thresholds: DefaultMatchThresholds,
		timeout:    DefaultLookupTimeout,
	}
}

// WithTimeout は1回の検索タイムアウトを変更した Matcher を返します。
func (m *Matcher) WithTimeout(d time.Duration) *Matcher {
	if d > 0 {
		m.timeout = d
	}
	return m
}

var _ TitleMatcher = (*Matcher)(nil)

// MatchTitle はクエリに最も一致するカタログレコードを返します。
// 受理できる候補がない場合は nil, nil を返し、カタログ通信に失敗した場合のみエラーを返します。
func (m *Matcher) MatchTitle(ctx context.Context, query string) (*entity.MatchResult, error) {
	queryTokens := textnorm.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	records, err := m.catalog.Search(lookupCtx, query, m.thresholds.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("catalog search %q: %w", query, err)
	}

	best, ok := m.selectBest(queryTokens, records)
	if !ok {
		return nil, nil
	}

	cleaned := cleanMatchedTitle(best.Record)
	if !m.passesSanityCheck(queryTokens, cleaned) {
		slog.Debug("catalog match rejected by sanity check",
			"query", query, "candidate", best.Record.Title, "score", best.Score)
		return nil, nil
	}

	return buildMatchResult(query, cleaned, best), nil
}

// ScoreCandidate は1件の候補を評価し、拒否理由があれば Rejected を立てて返します。
func (m *Matcher) ScoreCandidate(queryTokens []string, record entity.CatalogRecord) entity.MatchCandidate {
	cand := entity.MatchCandidate{Record: record}

	lowerTitle := strings.ToLower(record.Title)
	for _, marker := range nonOriginalMarkers {
		if strings.Contains(lowerTitle, marker) {
			cand.Rejected = true
			cand.RejectReason = "non-original work: " + marker
			return cand
		}
	}

	titleTokens := textnorm.Tokenize(record.Title)
	cand.Score = Jaccard(queryTokens, titleTokens)

	n := len(uniqueTokens(queryTokens))
	overlap := intersectionSize(queryTokens, titleTokens)
	if overlap < m.requiredOverlap(n) {
		cand.Rejected = true
		cand.RejectReason = "insufficient token overlap"
		return cand
	}

	if n < 2 {
		tok := queryTokens[0]
		if len([]rune(tok)) < m.thresholds.ShortTokenMinLength || !containsToken(titleTokens, tok) {
			cand.Rejected = true
			cand.RejectReason = "short query token not present"
			return cand
		}
	}
	return cand
}

// requiredOverlap は max(MinOverlapTokens, ceil(MinOverlapRatio × n)) をクエリのトークン数で頭打ちにした値です。
func (m *Matcher) requiredOverlap(n int) int {
	required := int(math.Ceil(m.thresholds.MinOverlapRatio * float64(n)))
	if required < m.thresholds.MinOverlapTokens {
		required = m.thresholds.MinOverlapTokens
	}
	if required > n {
		required = n
	}
	return required
}

func (m *Matcher) selectBest(queryTokens []string, records []entity.CatalogRecord) (entity.MatchCandidate, bool) {
	var best entity.MatchCandidate
	found := false
	for _, rec := range records {
		cand := m.ScoreCandidate(queryTokens, rec)
		if cand.Rejected {
			continue
		}
		if !found || cand.Score > best.Score {
			best = cand
			found = true
		}
	}
	if !found {
		return best, false
	}

	return best, best.Score >= m.acceptThreshold(queryTokens)
}

// acceptThreshold は重複を除いたクエリのトークン数に応じた採用閾値を返します。
func (m *Matcher) acceptThreshold(queryTokens []string) float64 {
	if len(uniqueTokens(queryTokens)) >= m.thresholds.LongQueryMinTokens {
		return m.thresholds.LongQueryThreshold
	}
	return m.thresholds.ShortQueryThreshold
}

// passesSanityCheck はクエリと整形後の書名の双方向の網羅率を確認します。
func (m *Matcher) passesSanityCheck(queryTokens []string, cleanedTitle string) bool {
	resultTokens := textnorm.Tokenize(cleanedTitle)
	if len(resultTokens) == 0 {
		return false
	}

	found := 0
	for _, qt := range queryTokens {
		if containsToken(resultTokens, qt) {
			found++
		}
	}
	if float64(found)/float64(len(queryTokens)) < m.thresholds.QueryCoverage {
		return false
	}

	normalizedQuery := strings.Join(queryTokens, " ")
	significant, inQuery := 0, 0
	for _, rt := range resultTokens {
		if len([]rune(rt)) <= 2 {
			continue
		}
		significant++
		if strings.Contains(normalizedQuery, rt) {
			inQuery++
		}
	}
	if significant == 0 {
		return true
	}
	return float64(inQuery)/float64(significant) >= m.thresholds.ResultCoverage
}

// cleanMatchedTitle は日付サフィックスと著者名の所有格プレフィックスを取り除きます。
func cleanMatchedTitle(rec entity.CatalogRecord) string {
	title := strings.TrimSpace(dateSuffix.ReplaceAllString(rec.Title, ""))

	sub := possessivePrefix.FindStringSubmatch(title)
	if sub == nil {
		return title
	}
	owner := strings.ToLower(strings.TrimSpace(sub[1]))
	for _, author := range rec.Authors {
		a := strings.ToLower(strings.TrimSpace(author))
		if a == "" {
			continue
		}
		parts := strings.Fields(a)
		if owner == a || owner == parts[len(parts)-1] {
			return strings.TrimSpace(sub[2])
		}
	}
	return title
}

func buildMatchResult(query, title string, cand entity.MatchCandidate) *entity.MatchResult {
	rec := cand.Record
	var author, genre string
	if len(rec.Authors) > 0 {
		author = rec.Authors[0]
	}
	if len(rec.Categories) > 0 {
		genre = rec.Categories[0]
	}

	return &entity.MatchResult{
		Query:  query,
		Title:  title,
		Author: author,
		Score:  cand.Score,
		Mood:   InferMood(genre),
		Enrichment: entity.CatalogEnrichment{
			ISBN:            pickISBN(rec.Identifiers),
			Pages:           rec.PageCount,
			Description:     rec.Description,
			CoverURL:        coverURL(rec.ImageLinks),
			Genre:           genre,
			AverageRating:   rec.AverageRating,
			PublicationYear: publicationYear(rec.PublishedDate),
		},
	}
}

// pickISBN は ISBN_13 を優先し、なければ ISBN_10 を返します。
func pickISBN(ids []entity.Identifier) string {
	var isbn10 string
	for _, id := range ids {
		switch id.Type {
		case "ISBN_13":
			return id.Value
		case "ISBN_10":
			if isbn10 == "" {
				isbn10 = id.Value
			}
		}
	}
	return isbn10
}

func coverURL(links entity.ImageLinks) string {
	u := links.Thumbnail
	if u == "" {
		u = links.SmallThumbnail
	}
	return strings.Replace(u, "http://", "https://", 1)
}

func publicationYear(date string) int {
	digits := leadingDigits.FindString(date)
	if digits == "" {
		return 0
	}
	year, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return year
}

// Jaccard は2つのトークン集合の Jaccard 係数を返します。両方が空の場合は1です。
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func intersectionSize(a, b []string) int {
	setB := toSet(b)
	n := 0
	for t := range toSet(a) {
		if _, ok := setB[t]; ok {
			n++
		}
	}
	return n
}

func uniqueTokens(tokens []string) []string {
	set := toSet(tokens)
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
