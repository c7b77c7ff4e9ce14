// Package session はユーザーごとのRefresh Token保管を提供する。
// ストアはユーザーIDにつき常に最大1エントリを保持し、
// 上書き書き込みが過去のRefresh Tokenの失効手段を兼ねる。
package session

import "context"

// Store はRefresh Tokenの保管インターフェース。
// すべての操作は外部キャッシュの状態を変更する。
type Store interface {
	// Put はユーザーのRefresh Tokenを上書き保存する。
	// 既存エントリがある場合もTTLはリフレッシュされる（last write wins）。
	Put(ctx context.Context, userID, refreshToken string) error

	// Get はユーザーのRefresh Tokenを取得する。
	// エントリが存在しない（または期限切れの）場合は ("", false, nil) を返す。
	Get(ctx context.Context, userID string) (string, bool, error)

	// Delete はユーザーのエントリを削除する。存在しない場合は何もしない。
	Delete(ctx context.Context, userID string) error

	// Validate は生きたエントリが存在し、かつ値がcandidateと一致する場合のみtrueを返す。
	Validate(ctx context.Context, userID, candidate string) (bool, error)
}
