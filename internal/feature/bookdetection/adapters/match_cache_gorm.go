package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
	"shelfscan_backend/internal/shared/textnorm"
)

const (
	defaultLookupTTL = 24 * time.Hour
	defaultMissTTL   = 30 * time.Minute
)

// MatchCacheGorm はカタログ検索結果をSQLテーブルにキャッシュするデコレーターです。
// Redisが設定されていない環境で使われます。
type MatchCacheGorm struct {
	db      *gorm.DB
	inner   usecase.CatalogSearcher
	ttl     time.Duration
	missTTL time.Duration
	now     func() time.Time
}

var _ usecase.CatalogSearcher = (*MatchCacheGorm)(nil)

// NewMatchCache はinnerをSQLキャッシュで包みます。ttlが0以下の場合は24時間を使います。
func NewMatchCache(db *gorm.DB, inner usecase.CatalogSearcher, ttl time.Duration) *MatchCacheGorm {
	if ttl <= 0 {
		ttl = defaultLookupTTL
	}
	return &MatchCacheGorm{
		db:      db,
		inner:   inner,
		ttl:     ttl,
		missTTL: min(ttl, defaultMissTTL),
		now:     time.Now,
	}
}

// CatalogLookupModel はキャッシュされた1回分のカタログ検索です。
type CatalogLookupModel struct {
	ID        uint      `gorm:"primaryKey"`
	QueryKey  string    `gorm:"size:255;not null;uniqueIndex:lookup_query_limit,priority:1"`
	Limit     int       `gorm:"column:result_limit;not null;uniqueIndex:lookup_query_limit,priority:2"`
	Payload   string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

func (CatalogLookupModel) TableName() string {
	return "catalog_lookups"
}

// Search は有効期限内のキャッシュがあればそれを返し、なければinnerを呼び出して保存します。
// キャッシュの読み書きに失敗してもinnerの結果は返します。
func (r *MatchCacheGorm) Search(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error) {
	key := textnorm.NormalizeTitle(query)

	var row CatalogLookupModel
	err := r.db.WithContext(ctx).
		Where("query_key = ? AND result_limit = ? AND expires_at > ?", key, limit, r.now()).
		Take(&row).Error
	switch {
	case err == nil:
		var out []entity.CatalogRecord
		if jerr := json.Unmarshal([]byte(row.Payload), &out); jerr == nil {
			return out, nil
		}
		slog.Warn("discarding corrupted catalog lookup", "query", key)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		slog.Warn("catalog lookup cache read failed", "query", key, "error", err)
	}

	out, err := r.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.CatalogRecord{}
	}

	if err := r.store(ctx, key, limit, out); err != nil {
		slog.Warn("failed to cache catalog lookup", "query", key, "error", err)
	}
	return out, nil
}

func (r *MatchCacheGorm) store(ctx context.Context, key string, limit int, records []entity.CatalogRecord) error {
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	ttl := r.ttl
	if len(records) == 0 {
		ttl = r.missTTL
	}
	m := CatalogLookupModel{
		QueryKey:  key,
		Limit:     limit,
		Payload:   string(b),
		ExpiresAt: r.now().Add(ttl),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "query_key"}, {Name: "result_limit"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&m).Error
}

// PurgeExpired は期限切れの行を削除し、削除件数を返します。
func (r *MatchCacheGorm) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", r.now()).
		Delete(&CatalogLookupModel{})
	return res.RowsAffected, res.Error
}
