// Package usecase はbookdetectionフィーチャーのビジネスロジックを実装します。
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
)

// MaxProviderAttempts は1プロバイダーあたりの試行回数の上限です。
const MaxProviderAttempts = 3

// DefaultBackoff は主プロバイダーの再試行間隔です。
var DefaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

var errNoBooks = errors.New("structured provider returned no books")

// Provider は認識プロバイダーの共通インターフェースです。
type Provider interface {
	Name() string
}

// StructuredProvider は画像から書名・著者・ムードを直接返すプロバイダーです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type StructuredProvider interface {
	Provider
	ExtractBooks(ctx context.Context, image []byte) ([]entity.StructuredBook, error)
}

// OCRProvider は画像から生テキストと（あれば）ブロック座標を返すプロバイダーです。
type OCRProvider interface {
	Provider
	ExtractText(ctx context.Context, image []byte) (entity.OCRResult, error)
}

// ProviderSpec はカスケード内の1プロバイダーの設定です。定義順が優先順位になります。
type ProviderSpec struct {
	Provider Provider
	// MaxAttempts は試行回数です。0以下は1、MaxProviderAttempts を超える値は丸められます。
	MaxAttempts int
	// RateLimitShared はクールダウン中にスキップ対象とするかどうかです。
	RateLimitShared bool
	// RequiresAuth は認証情報を必要とするプロバイダーかどうかです。ヘルスチェックとログで報告します。
	RequiresAuth bool
}

// Sleeper は再試行・ペーシングの待機を抽象化します。ctx がキャンセルされたら待たずに返ります。
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc は関数を Sleeper として扱うアダプタです。
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep implements Sleeper.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper は time.Timer で待機する Sleeper です。
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

// CascadeResult はカスケードの結果です。Books か OCR のどちらか一方が設定されます。
type CascadeResult struct {
	Provider string
	Books    []entity.StructuredBook
	OCR      *entity.OCRResult
}

// Cascade は優先順位付きの認識プロバイダーを順に試します。
type Cascade struct {
	specs    []ProviderSpec
	cooldown CooldownStore
	clock    Clock
	sleeper  Sleeper
	backoff  []time.Duration
	window   time.Duration
}

// NewCascade は Cascade を生成します。store が nil の場合はプロセス内ストアを使います。
func NewCascade(specs []ProviderSpec, store CooldownStore) *Cascade {
	if store == nil {
		store = NewMemoryCooldownStore()
	}
	return &Cascade{
		specs:    specs,
		cooldown: store,
		clock:    SystemClock,
		sleeper:  TimerSleeper,
		backoff:  DefaultBackoff,
		window:   DefaultCooldown,
	}
}

// WithClock は時刻源を差し替えます。
func (c *Cascade) WithClock(clock Clock) *Cascade {
	c.clock = clock
	return c
}

// WithSleeper は待機処理を差し替えます。
func (c *Cascade) WithSleeper(s Sleeper) *Cascade {
	c.sleeper = s
	return c
}

// WithCooldown はクールダウン期間を変更します。
func (c *Cascade) WithCooldown(d time.Duration) *Cascade {
	if d > 0 {
		c.window = d
	}
	return c
}

// WithBackoff は再試行間隔を変更します。
func (c *Cascade) WithBackoff(b []time.Duration) *Cascade {
	if len(b) > 0 {
		c.backoff = b
	}
	return c
}

// ProviderNames は設定済みプロバイダー名を優先順に返します。
func (c *Cascade) ProviderNames() []string {
	names := make([]string, 0, len(c.specs))
	for _, s := range c.specs {
		names = append(names, s.Provider.Name())
	}
	return names
}

// AuthProviderNames は認証情報を必要とするプロバイダー名を優先順に返します。
func (c *Cascade) AuthProviderNames() []string {
	names := make([]string, 0, len(c.specs))
	for _, s := range c.specs {
		if s.RequiresAuth {
			names = append(names, s.Provider.Name())
		}
	}
	return names
}

// Detect はプロバイダーを優先順に試し、最初に成功した結果を返します。
func (c *Cascade) Detect(ctx context.Context, image []byte) (CascadeResult, error) {
	var lastErr, noTextErr error

	for i, spec := range c.specs {
		if err := ctx.Err(); err != nil {
			return CascadeResult{}, err
		}

		name := spec.Provider.Name()
		isLast := i == len(c.specs)-1

		if spec.RateLimitShared {
			if remaining, skip := c.cooldownRemaining(ctx, name); skip {
				slog.Info("skipping provider in cooldown", "provider", name, "remaining", remaining)
				if isLast {
					return CascadeResult{}, &domain.RateLimitedError{Provider: name, RetryAfter: remaining}
				}
				lastErr = domain.NewRateLimitedError(name, fmt.Errorf("in cooldown for %v", remaining))
				continue
			}
		}

		var (
			result CascadeResult
			err    error
		)
		switch p := spec.Provider.(type) {
		case StructuredProvider:
			result, err = c.runStructured(ctx, spec, p, image)
		case OCRProvider:
			result, err = c.runOCR(ctx, spec, p, image)
		default:
			slog.Warn("provider has no recognition capability", "provider", name)
			continue
		}
		if err == nil {
			slog.Info("recognition provider served request", "provider", name, "books", len(result.Books))
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CascadeResult{}, ctxErr
		}

		lastErr = err
		if domain.KindOf(err) == domain.KindRateLimited {
			now := c.clock.Now()
			if merr := c.cooldown.MarkRateLimited(ctx, name, now); merr != nil {
				slog.Warn("failed to record provider cooldown", "provider", name, "error", merr)
			}
			if isLast {
				return CascadeResult{}, &domain.RateLimitedError{Provider: name, RetryAfter: c.window}
			}
		}
		if errors.Is(err, domain.ErrNoTextDetected) {
			noTextErr = err
		}

		if !isLast {
			slog.Warn("falling back to next recognition provider",
				"provider", name, "next", c.specs[i+1].Provider.Name(), "error", err)
		}
	}

	if noTextErr != nil {
		return CascadeResult{}, noTextErr
	}
	if lastErr == nil {
		return CascadeResult{}, domain.ErrAllProvidersFailed
	}
	return CascadeResult{}, fmt.Errorf("%w: %w", domain.ErrAllProvidersFailed, lastErr)
}

func (c *Cascade) runStructured(ctx context.Context, spec ProviderSpec, p StructuredProvider, image []byte) (CascadeResult, error) {
	var books []entity.StructuredBook
	err := c.attempt(ctx, spec, func(ctx context.Context) error {
		var err error
		books, err = p.ExtractBooks(ctx, image)
		return err
	})
	if err != nil {
		return CascadeResult{}, err
	}

	filtered := make([]entity.StructuredBook, 0, len(books))
	for _, b := range books {
		if strings.TrimSpace(b.Title) != "" {
			filtered = append(filtered, b)
		}
	}
	if len(filtered) == 0 {
		return CascadeResult{}, domain.NewTransientError(p.Name(), errNoBooks)
	}
	return CascadeResult{Provider: p.Name(), Books: filtered}, nil
}

func (c *Cascade) runOCR(ctx context.Context, spec ProviderSpec, p OCRProvider, image []byte) (CascadeResult, error) {
	var ocr entity.OCRResult
	err := c.attempt(ctx, spec, func(ctx context.Context) error {
		var err error
		ocr, err = p.ExtractText(ctx, image)
		return err
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindRateLimited {
			return CascadeResult{}, err
		}
		return CascadeResult{}, fmt.Errorf("%w: %w", domain.ErrNoTextDetected, err)
	}
	if strings.TrimSpace(ocr.Text) == "" && len(ocr.Blocks) == 0 {
		return CascadeResult{}, fmt.Errorf("%s: %w", p.Name(), domain.ErrNoTextDetected)
	}
	return CascadeResult{Provider: p.Name(), OCR: &ocr}, nil
}

// attempt は call を spec.MaxAttempts 回まで実行します。認証エラーとレート制限は再試行しません。
func (c *Cascade) attempt(ctx context.Context, spec ProviderSpec, call func(ctx context.Context) error) error {
	name := spec.Provider.Name()
	attempts := clampAttempts(spec.MaxAttempts)

	var err error
	for n := 1; n <= attempts; n++ {
		err = safeCall(ctx, name, call)
		if err == nil {
			return nil
		}

		kind := domain.KindOf(err)
		if kind == domain.KindAuth || kind == domain.KindRateLimited {
			slog.Warn("provider call failed without retry",
				"provider", name, "kind", kind, "requires_auth", spec.RequiresAuth, "error", err)
			return err
		}
		if ctx.Err() != nil || n == attempts {
			break
		}

		delay := c.backoffFor(n)
		slog.Warn("retrying provider after transient failure",
			"provider", name, "attempt", n, "max_attempts", attempts, "backoff", delay, "error", err)
		if serr := c.sleeper.Sleep(ctx, delay); serr != nil {
			break
		}
	}
	return err
}

func (c *Cascade) backoffFor(attempt int) time.Duration {
	idx := attempt - 1
	if idx >= len(c.backoff) {
		idx = len(c.backoff) - 1
	}
	return c.backoff[idx]
}

func (c *Cascade) cooldownRemaining(ctx context.Context, name string) (time.Duration, bool) {
	last, ok, err := c.cooldown.LastRateLimited(ctx, name)
	if err != nil {
		slog.Warn("failed to read provider cooldown", "provider", name, "error", err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	now := c.clock.Now()
	if !inCooldown(last, now, c.window) {
		return 0, false
	}
	return last.Add(c.window).Sub(now), true
}

// safeCall はプロバイダー呼び出し中の panic を一時的エラーに変換します。
func safeCall(ctx context.Context, name string, call func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in provider call", "provider", name, "panic", r)
			err = domain.NewTransientError(name, fmt.Errorf("panic: %v", r))
		}
	}()
	return call(ctx)
}

func clampAttempts(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxProviderAttempts {
		return MaxProviderAttempts
	}
	return n
}
