package session

import (
	"context"
	"sync"
	"time"
)

// memoryEntry はMemoryStoreの1エントリ。
type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryStore はプロセス内メモリを使用したRefresh Tokenストア。
// ローカル開発とテストで使用する。TTLの評価は読み取り時に行う。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration

	// now はテストでオーバーライド可能な時刻取得関数。
	now func() time.Time
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock は時刻取得関数を差し替える。テスト用。
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Put はユーザーのRefresh Tokenを上書き保存する。
func (s *MemoryStore) Put(_ context.Context, userID, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = memoryEntry{
		token:     refreshToken,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Get はユーザーのRefresh Tokenを取得する。期限切れエントリは存在しない扱いとする。
func (s *MemoryStore) Get(_ context.Context, userID string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, userID)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.token, true, nil
}

// Delete はユーザーのエントリを削除する。存在しない場合は何もしない。
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

// Validate は保存済みトークンとcandidateの一致を検証する。
func (s *MemoryStore) Validate(ctx context.Context, userID, candidate string) (bool, error) {
	stored, found, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return stored == candidate, nil
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
