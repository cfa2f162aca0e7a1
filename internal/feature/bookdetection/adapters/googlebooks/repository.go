package googlebooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	books "google.golang.org/api/books/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
	"shelfscan_backend/internal/shared/ratelimiter"
)

// ProviderName is the catalog name used in errors and logs.
const ProviderName = "googlebooks"

// GoogleBooksCatalog は Google Books の volumes.list を使った CatalogSearcher 実装です。
type GoogleBooksCatalog struct {
	cfg     Config
	svc     *books.Service
	limiter ratelimiter.RateLimiterInterface
}

// GoogleBooksCatalogがCatalogSearcherを実装していることをコンパイル時に検証します。
var _ usecase.CatalogSearcher = (*GoogleBooksCatalog)(nil)

// NewGoogleBooksCatalog は指定された設定とHTTPクライアントでGoogleBooksCatalogを生成します。
func NewGoogleBooksCatalog(ctx context.Context, cfg Config, client *http.Client, limiter ratelimiter.RateLimiterInterface) (*GoogleBooksCatalog, error) {
	svc, err := books.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create books service: %w", err)
	}
	if cfg.BaseURL != "" {
		svc.BasePath = strings.TrimRight(cfg.BaseURL, "/") + "/"
	}
	if limiter == nil {
		limiter = ratelimiter.NewRateLimiter(0, 0)
	}
	return &GoogleBooksCatalog{cfg: cfg, svc: svc, limiter: limiter}, nil
}

// Search は query で書籍を検索し、関連度順に最大 limit 件を返します。
func (g *GoogleBooksCatalog) Search(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	call := g.svc.Volumes.List(query).
		MaxResults(int64(limit)).
		OrderBy("relevance").
		PrintType("books").
		Context(ctx)

	var opts []googleapi.CallOption
	if g.cfg.APIKey != "" {
		opts = append(opts, googleapi.QueryParameter("key", g.cfg.APIKey))
	}

	res, err := call.Do(opts...)
	if err != nil {
		return nil, classify(err)
	}

	records := make([]entity.CatalogRecord, 0, len(res.Items))
	for _, v := range res.Items {
		if v == nil || v.VolumeInfo == nil {
			continue
		}
		records = append(records, toRecord(v.VolumeInfo))
	}
	return records, nil
}

func toRecord(info *books.VolumeVolumeInfo) entity.CatalogRecord {
	rec := entity.CatalogRecord{
		Title:         info.Title,
		Authors:       info.Authors,
		PageCount:     int(info.PageCount),
		Description:   info.Description,
		Categories:    info.Categories,
		AverageRating: info.AverageRating,
		PublishedDate: info.PublishedDate,
	}
	for _, id := range info.IndustryIdentifiers {
		if id == nil {
			continue
		}
		rec.Identifiers = append(rec.Identifiers, entity.Identifier{Type: id.Type, Value: id.Identifier})
	}
	if info.ImageLinks != nil {
		rec.ImageLinks = entity.ImageLinks{
			Thumbnail:      info.ImageLinks.Thumbnail,
			SmallThumbnail: info.ImageLinks.SmallThumbnail,
		}
	}
	return rec
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return domain.NewProviderErrorForStatus(ProviderName, apiErr.Code, err)
	}
	return domain.NewTransientError(ProviderName, err)
}
