package usecase

import (
	"context"
	"sync"
	"time"
)

// DefaultCooldown はレート制限を受けたプロバイダーをスキップする期間です。
const DefaultCooldown = 60 * time.Second

// Clock は現在時刻を返します。テストでは固定時刻を注入します。
type Clock interface {
	Now() time.Time
}

// ClockFunc は関数を Clock として扱うアダプタです。
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock は time.Now を返す Clock です。
var SystemClock Clock = ClockFunc(time.Now)

// CooldownStore はプロバイダーごとの直近のレート制限時刻を保持します。
// 複数リクエストから同時に呼ばれるため、実装は並行安全である必要があります。
type CooldownStore interface {
	LastRateLimited(ctx context.Context, provider string) (time.Time, bool, error)
	MarkRateLimited(ctx context.Context, provider string, at time.Time) error
}

// MemoryCooldownStore はプロセス内のマップで CooldownStore を実装します。
type MemoryCooldownStore struct {
	mu   sync.RWMutex
	last map[string]time.Time
}

// NewMemoryCooldownStore は空の MemoryCooldownStore を生成します。
func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{last: make(map[string]time.Time)}
}

var _ CooldownStore = (*MemoryCooldownStore)(nil)

// LastRateLimited implements CooldownStore.
func (s *MemoryCooldownStore) LastRateLimited(_ context.Context, provider string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.last[provider]
	return at, ok, nil
}

// MarkRateLimited implements CooldownStore.
func (s *MemoryCooldownStore) MarkRateLimited(_ context.Context, provider string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[provider] = at
	return nil
}

// inCooldown は now が last+window より前であれば真を返します。last+window ちょうどでは再び利用可能です。
func inCooldown(last, now time.Time, window time.Duration) bool {
	return now.Before(last.Add(window))
}
