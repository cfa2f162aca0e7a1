package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
)

const (
	// DefaultBatchConcurrency は1バッチ内で同時に実行するカタログ照合の数です。
	DefaultBatchConcurrency = 3
	// DefaultBatchPacing はバッチ間の待機時間です。
	DefaultBatchPacing = 500 * time.Millisecond
)

// Coordinator は複数の書名を固定サイズのバッチで並行にカタログ照合します。
type Coordinator struct {
	matcher     TitleMatcher
	concurrency int
	pacing      time.Duration
	sleeper     Sleeper
}

// NewCoordinator は既定の並行数とペーシングで Coordinator を生成します。
func NewCoordinator(matcher TitleMatcher) *Coordinator {
	return &Coordinator{
		matcher:     matcher,
		concurrency: DefaultBatchConcurrency,
		pacing:      DefaultBatchPacing,
		sleeper:     TimerSleeper,
	}
}

// WithConcurrency はバッチサイズを変更します。
func (c *Coordinator) WithConcurrency(n int) *Coordinator {
	if n > 0 {
		c.concurrency = n
	}
	return c
}

// WithPacing はバッチ間の待機時間を変更します。
func (c *Coordinator) WithPacing(d time.Duration) *Coordinator {
	if d >= 0 {
		c.pacing = d
	}
	return c
}

// WithSleeper は待機処理を差し替えます。
func (c *Coordinator) WithSleeper(s Sleeper) *Coordinator {
	c.sleeper = s
	return c
}

// MatchAll は titles を照合し、一致したものと一致しなかったものを入力順に返します。
// 1件の失敗は同じバッチの他の照合を中断しません。ctx がキャンセルされた場合、未処理の書名は Unmatched になります。
func (c *Coordinator) MatchAll(ctx context.Context, titles []string) entity.BatchResult {
	results := make([]*entity.MatchResult, len(titles))

	for start := 0; start < len(titles); start += c.concurrency {
		if start > 0 {
			if err := c.sleeper.Sleep(ctx, c.pacing); err != nil {
				slog.Warn("batch matching stopped", "processed", start, "total", len(titles), "error", err)
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		end := min(start+c.concurrency, len(titles))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = c.matchOne(ctx, titles[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	out := entity.BatchResult{
		Matched:   []entity.MatchResult{},
		Unmatched: []string{},
	}
	for i, r := range results {
		if r == nil {
			out.Unmatched = append(out.Unmatched, titles[i])
			continue
		}
		out.Matched = append(out.Matched, *r)
	}
	return out
}

// matchOne は1件を照合します。エラーと panic はその書名の不一致として扱います。
func (c *Coordinator) matchOne(ctx context.Context, title string) (res *entity.MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in catalog match", "title", title, "panic", r)
			res = nil
		}
	}()

	if strings.TrimSpace(title) == "" {
		return nil
	}
	res, err := c.matcher.MatchTitle(ctx, title)
	if err != nil {
		slog.Warn("catalog match failed", "title", title, "error", fmt.Errorf("%w: %w", domain.ErrNoCatalogMatch, err))
		return nil
	}
	return res
}
