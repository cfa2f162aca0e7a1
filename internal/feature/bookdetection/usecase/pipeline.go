package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/shared/requestid"
)

const (
	// MaxImageSize は画像アップロードの最大サイズ（10MB）です。
	MaxImageSize = 10 * 1024 * 1024
	// DefaultPipelineTimeout は1画像あたりの処理全体のタイムアウトです。
	DefaultPipelineTimeout = 45 * time.Second
)

// BookDetector は画像から書籍候補を認識するインターフェースです。*Cascade が実装します。
type BookDetector interface {
	Detect(ctx context.Context, image []byte) (CascadeResult, error)
}

// BatchMatcher は複数の書名をまとめてカタログ照合するインターフェースです。*Coordinator が実装します。
type BatchMatcher interface {
	MatchAll(ctx context.Context, titles []string) entity.BatchResult
}

var (
	_ BookDetector = (*Cascade)(nil)
	_ BatchMatcher = (*Coordinator)(nil)
)

// Pipeline は画像からの書籍検出と書名リストのカタログ補完を提供します。
type Pipeline struct {
	detector BookDetector
	batch    BatchMatcher
	timeout  time.Duration
	enrich   bool
}

// NewPipeline は Pipeline を生成します。batch が nil の場合、OCR結果のカタログ補完は行いません。
func NewPipeline(detector BookDetector, batch BatchMatcher) *Pipeline {
	return &Pipeline{
		detector: detector,
		batch:    batch,
		timeout:  DefaultPipelineTimeout,
		enrich:   batch != nil,
	}
}

// WithTimeout は外側のタイムアウトを変更します。
func (p *Pipeline) WithTimeout(d time.Duration) *Pipeline {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// WithEnrichment はOCR経路でカタログ補完を行うかを切り替えます。
func (p *Pipeline) WithEnrichment(enabled bool) *Pipeline {
	p.enrich = enabled && p.batch != nil
	return p
}

// DetectBooksFromImage は画像から本を検出します。
func (p *Pipeline) DetectBooksFromImage(ctx context.Context, image []byte) (entity.DetectionResult, error) {
	if err := validateImage(image); err != nil {
		return entity.DetectionResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	log := slog.With("request_id", requestid.FromContext(ctx))

	res, err := p.detector.Detect(ctx, image)
	if err != nil {
		if timedOut(ctx) {
			log.Warn("detection pipeline timed out during recognition", "timeout", p.timeout)
			return entity.DetectionResult{}, fmt.Errorf("%w: %w", domain.ErrPipelineTimeout, err)
		}
		log.Warn("recognition failed", "error", err)
		return entity.DetectionResult{}, err
	}

	if res.OCR == nil {
		books := structuredBooks(res)
		log.Info("books detected", "provider", res.Provider, "path", entity.ProvenanceStructured, "count", len(books))
		return entity.DetectionResult{Success: true, Books: books, ProviderUsed: res.Provider}, nil
	}

	books := ocrBooks(res.Provider, *res.OCR)
	if len(books) == 0 {
		log.Info("ocr text contained no title candidates", "provider", res.Provider)
		return entity.DetectionResult{}, domain.ErrNoTitlesExtracted
	}

	if p.enrich {
		p.enrichBooks(ctx, books)
		if timedOut(ctx) {
			log.Warn("detection pipeline timed out during catalog matching", "timeout", p.timeout)
			return entity.DetectionResult{}, domain.ErrPipelineTimeout
		}
	}

	log.Info("books detected", "provider", res.Provider, "path", entity.ProvenanceOCR, "count", len(books))
	return entity.DetectionResult{Success: true, Books: books, ProviderUsed: res.Provider}, nil
}

// Enrich は書名リストをカタログと照合します。
func (p *Pipeline) Enrich(ctx context.Context, titles []string) entity.BatchResult {
	if p.batch == nil {
		return entity.BatchResult{Matched: []entity.MatchResult{}, Unmatched: titles}
	}
	return p.batch.MatchAll(ctx, titles)
}

// enrichBooks は一致したOCR由来の本をカタログの書名・著者・ムード・メタデータで上書きします。
func (p *Pipeline) enrichBooks(ctx context.Context, books []entity.DetectedBook) {
	titles := make([]string, len(books))
	for i, b := range books {
		titles[i] = b.Title
	}

	br := p.batch.MatchAll(ctx, titles)
	byQuery := make(map[string]entity.MatchResult, len(br.Matched))
	for _, m := range br.Matched {
		byQuery[m.Query] = m
	}

	for i := range books {
		m, ok := byQuery[books[i].Title]
		if !ok {
			continue
		}
		enrichment := m.Enrichment
		books[i].Title = m.Title
		if m.Author != "" {
			author := m.Author
			books[i].Author = &author
		}
		books[i].Mood = m.Mood
		books[i].Provenance = entity.ProvenanceOCRCatalog
		books[i].Enrichment = &enrichment
	}
}

func structuredBooks(res CascadeResult) []entity.DetectedBook {
	books := make([]entity.DetectedBook, 0, len(res.Books))
	for _, sb := range res.Books {
		b := entity.DetectedBook{
			Title:      strings.TrimSpace(sb.Title),
			Mood:       sb.Mood,
			Provider:   res.Provider,
			Provenance: entity.ProvenanceStructured,
		}
		if a := strings.TrimSpace(sb.Author); a != "" {
			b.Author = &a
		}
		if b.Mood == "" {
			b.Mood = DefaultMood
		}
		books = append(books, b)
	}
	return books
}

// ocrBooks はOCR結果から書名候補を抽出します。座標があれば背表紙単位、なければ行単位で評価します。
func ocrBooks(provider string, ocr entity.OCRResult) []entity.DetectedBook {
	var books []entity.DetectedBook
	c := newTitleCollector()
	push := func(line, source string) bool {
		title := titleCandidateOf(line)
		if title == "" {
			return true
		}
		before := len(c.candidates)
		more := c.add(title)
		if len(c.candidates) > before {
			books = append(books, entity.DetectedBook{
				Title:      c.candidates[len(c.candidates)-1].Title,
				SpineText:  source,
				Provider:   provider,
				Provenance: entity.ProvenanceOCR,
			})
		}
		return more
	}

	if ocr.HasGeometry() {
		for _, sp := range GroupIntoSpines(ocr.Blocks) {
			if !push(sp.Text, sp.Text) {
				return books
			}
		}
		if len(books) > 0 {
			return books
		}
	}

	for _, line := range strings.Split(ocr.Text, "\n") {
		if !push(line, strings.TrimSpace(line)) {
			break
		}
	}
	return books
}

func validateImage(image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("%w: image data is empty", domain.ErrInvalidImage)
	}
	if len(image) > MaxImageSize {
		return fmt.Errorf("%w: image size exceeds maximum of %d bytes", domain.ErrInvalidImage, MaxImageSize)
	}
	return nil
}

func timedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
