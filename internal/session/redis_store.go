package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix はRedisキーの接頭辞。
const keyPrefix = "refresh_token:"

// RedisStore はRedisを使用したRefresh Tokenストア。
// TTLはRefresh Tokenの有効期限と同じ値を設定する。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// redisKey はユーザーIDに対応するRedisキーを返す。
func redisKey(userID string) string {
	return keyPrefix + userID
}

// Put はユーザーのRefresh Tokenを上書き保存する。
// SETは既存キーも上書きし、TTLを再設定する。
func (s *RedisStore) Put(ctx context.Context, userID, refreshToken string) error {
	if err := s.client.Set(ctx, redisKey(userID), refreshToken, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put refresh token: %w", err)
	}
	return nil
}

// Get はユーザーのRefresh Tokenを取得する。
// キーが存在しない場合は ("", false, nil) を返す。
func (s *RedisStore) Get(ctx context.Context, userID string) (string, bool, error) {
	val, err := s.client.Get(ctx, redisKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return val, true, nil
}

// Delete はユーザーのエントリを削除する。存在しない場合は何もしない。
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// Validate は保存済みトークンとcandidateの一致を検証する。
func (s *RedisStore) Validate(ctx context.Context, userID, candidate string) (bool, error) {
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
var _ Store = (*RedisStore)(nil)
