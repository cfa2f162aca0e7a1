package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/shared/textnorm"
)

const (
	// MinTitleLength と MaxTitleLength は書名として受け付ける文字数の範囲です。
	MinTitleLength = 8
	MaxTitleLength = 80
	// MinTitleWords と MaxTitleWords は書名として受け付ける単語数の範囲です。
	MinTitleWords = 2
	MaxTitleWords = 12
	// MaxAllCapsWords を超える単語数の全大文字行は背表紙のノイズとみなします。
	MaxAllCapsWords = 3
	// MinNormalizedLength は正規化後の書名の最小文字数です。
	MinNormalizedLength = 3
	// MaxTitleCandidates は1回の抽出で返す候補の上限です。
	MaxTitleCandidates = 50
)

var (
	allCapsToken   = regexp.MustCompile(`^[A-Z]{2,}$`)
	nameLikeToken  = regexp.MustCompile(`^(?:[A-Z][a-z'’\-]+|[A-Z]\.(?:[A-Z]\.)*)$`)
	leadingArticle = regexp.MustCompile(`(?i)^(?:the|a|an)\s+`)
	volumeMarker   = regexp.MustCompile(`\b(?i:vol(?:ume)?|part|chapter|ch|book)(?:\.\s*|\s+)(?:\d+|[IVXLC]+)\b`)
	trailingYear   = regexp.MustCompile(`\s*[\(\[]?\b(?:1[5-9]|20)\d{2}[\)\]]?\s*$`)
	trailingFormat = regexp.MustCompile(`(?i)\s*\b(?:paperback|hardcover|hardback|mass market|edition|ebook)\s*$`)
	edgePunct      = regexp.MustCompile(`^[\s\p{P}]+|[\s:;,\-–—/]+$`)
	authorSplit    = regexp.MustCompile(`(?i)\s+by\s+|\s+-\s+|\s+/\s+`)
)

// noisePatterns は書名になりえない純粋なノイズ行のパターンです。
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[\d\s.,\-]+$`),
	regexp.MustCompile(`^(?:[A-Za-z]\.?\s*){1,3}$`),
	regexp.MustCompile(`(?i)\bisbn\b`),
	regexp.MustCompile(`(?i)copyright|©|all rights reserved`),
	regexp.MustCompile(`(?i)\bprice\b|\brrp\b`),
	regexp.MustCompile(`^\s*\$`),
	regexp.MustCompile(`(?i)^(?:the|and|of|a|an|in|on|to|for|with|from)$`),
}

// nonTitleKeywords は出版社・レーベル・参考書類を示すキーワードです（大文字小文字を区別しない部分一致）。
var nonTitleKeywords = []string{
	"press",
	"vintage",
	"penguin",
	"random house",
	"harpercollins",
	"harper",
	"simon & schuster",
	"scholastic",
	"bantam",
	"doubleday",
	"knopf",
	"picador",
	"publishing",
	"publishers",
	"study guide",
	"workbook",
	"dictionary",
	"encyclopedia",
	"thesaurus",
	"handbook",
	"textbook",
}

// genericWords は単語1つだけの候補として採用しない一般語です。
var genericWords = map[string]struct{}{
	"love": {}, "story": {}, "life": {}, "time": {}, "home": {}, "world": {},
	"book": {}, "novel": {}, "stories": {}, "poems": {}, "history": {}, "war": {},
	"music": {}, "family": {}, "girl": {}, "man": {}, "woman": {}, "night": {},
	"day": {}, "art": {},
}

// IsPersonName は行が著者名のように見えるかを判定します。
// 2〜3語で、全語が2文字以上の大文字英字であるか、2語以上がタイトルケースの単語またはイニシャルである場合に真を返します。
func IsPersonName(line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) < 2 || len(tokens) > 3 {
		return false
	}

	allCaps := true
	nameLike := 0
	for _, tok := range tokens {
		if !allCapsToken.MatchString(tok) {
			allCaps = false
		}
		if nameLikeToken.MatchString(tok) {
			nameLike++
		}
	}
	return allCaps || nameLike >= 2
}

// isAuthorLine は人名らしい行、または "by" を含む行を判定します。
func isAuthorLine(line string) bool {
	if IsPersonName(line) {
		return true
	}
	if strings.Contains(line, " by ") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(line), "by ")
}

// cleanTitleLine は冠詞・巻数表記・末尾の年・版型語を除去します。
func cleanTitleLine(line string) string {
	s := strings.TrimSpace(line)
	s = leadingArticle.ReplaceAllString(s, "")
	s = volumeMarker.ReplaceAllString(s, "")
	for {
		next := trailingFormat.ReplaceAllString(trailingYear.ReplaceAllString(s, ""), "")
		if next == s {
			break
		}
		s = next
	}
	s = textnorm.CollapseSpaces(s)
	return edgePunct.ReplaceAllString(s, "")
}

// IsLikelyBookTitle は整形済みの行が書名らしいかを判定します。
func IsLikelyBookTitle(s string) bool {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < MinTitleLength || n > MaxTitleLength {
		return false
	}
	for _, p := range noisePatterns {
		if p.MatchString(s) {
			return false
		}
	}
	lower := strings.ToLower(s)
	for _, kw := range nonTitleKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	words := strings.Fields(s)
	if len(words) < MinTitleWords || len(words) > MaxTitleWords {
		return false
	}
	if !hasLetter(s) {
		return false
	}
	if isAllUpper(s) && len(words) > MaxAllCapsWords {
		return false
	}
	return true
}

// titleCandidateOf は1行から書名候補を取り出します。候補がなければ空文字を返します。
func titleCandidateOf(line string) string {
	line = textnorm.CollapseSpaces(line)
	if line == "" || isAuthorLine(line) {
		return ""
	}

	cleaned := cleanTitleLine(line)
	if loc := authorSplit.FindStringIndex(cleaned); loc != nil {
		head := edgePunct.ReplaceAllString(cleaned[:loc[0]], "")
		if !hasLetter(head) {
			return ""
		}
		return head
	}

	if !IsLikelyBookTitle(cleaned) {
		return ""
	}
	return cleaned
}

// titleCollector は1回の抽出パス内で正規化形による重複排除と件数上限を管理します。
type titleCollector struct {
	seen       map[string]struct{}
	candidates []entity.TitleCandidate
}

func newTitleCollector() *titleCollector {
	return &titleCollector{seen: make(map[string]struct{})}
}

// add は候補を追加します。上限に達した場合は false を返します。
func (c *titleCollector) add(title string) bool {
	if len(c.candidates) >= MaxTitleCandidates {
		return false
	}
	normalized := textnorm.NormalizeTitle(title)
	if utf8.RuneCountInString(normalized) < MinNormalizedLength {
		return true
	}
	if !strings.Contains(normalized, " ") {
		if _, generic := genericWords[normalized]; generic {
			return true
		}
	}
	if _, dup := c.seen[normalized]; dup {
		return true
	}
	c.seen[normalized] = struct{}{}
	c.candidates = append(c.candidates, entity.TitleCandidate{Title: title, Normalized: normalized})
	return len(c.candidates) < MaxTitleCandidates
}

// ExtractTitles はOCRの行（または改行を含むテキスト、背表紙の連結テキスト）から書名候補を抽出します。
func ExtractTitles(text string) []entity.TitleCandidate {
	return ExtractTitlesFromLines(strings.Split(text, "\n"))
}

// ExtractTitlesFromLines は複数行から書名候補を抽出し、正規化形で重複を排除して最大50件を返します。
func ExtractTitlesFromLines(lines []string) []entity.TitleCandidate {
	c := newTitleCollector()
	for _, line := range lines {
		title := titleCandidateOf(line)
		if title == "" {
			continue
		}
		if !c.add(title) {
			break
		}
	}
	return c.candidates
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isAllUpper(s string) bool {
	return hasLetter(s) && strings.ToUpper(s) == s
}
