// Package account はOAuthプロファイルからファーストパーティの
// ユーザーアカウントへの解決を提供する。
package account

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nodap/nodap-server/internal/model"
	"github.com/nodap/nodap-server/internal/repository"
)

// fallbackNickname はプロバイダーのニックネームが空または
// サニタイズで消滅した場合に使用する基底名。
const fallbackNickname = "nodap"

// maxNicknameAttempts はニックネーム自動生成の試行回数上限。
const maxNicknameAttempts = 100

// suffixBound はニックネームに付与する数値サフィックスの上限（排他的）。
const suffixBound = 10000

// NicknameGenerator は一意なニックネームを自動生成する。
type NicknameGenerator struct {
	users    repository.UserRepository
	sanitize *bluemonday.Policy
	randInt  func(n int) int
}

// NewNicknameGenerator はNicknameGeneratorを生成する。
func NewNicknameGenerator(users repository.UserRepository) *NicknameGenerator {
	return &NicknameGenerator{
		users:    users,
		sanitize: bluemonday.StrictPolicy(),
		randInt:  rand.Intn,
	}
}

// WithRandFunc は乱数生成関数を差し替える。テスト用。
func (g *NicknameGenerator) WithRandFunc(fn func(n int) int) *NicknameGenerator {
	g.randInt = fn
	return g
}

// Generate はプロバイダーから受け取った表示名を基に、アクティブなユーザーの
// 間で一意なニックネームを生成する。
// 基底名をそのまま試した後、数値サフィックスを付けて再試行する。
// 試行上限に達した場合はNICKNAME_EXHAUSTEDエラーを返す。
func (g *NicknameGenerator) Generate(ctx context.Context, base string) (string, error) {
	base = g.normalizeBase(base)

	candidate := truncateRunes(base, model.NicknameMaxLength)
	for attempt := 0; attempt < maxNicknameAttempts; attempt++ {
		exists, err := g.users.ExistsByNickname(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check nickname availability: %w", err)
		}
		if !exists {
			return candidate, nil
		}

		// サフィックスが切り落とされないよう、基底名側を詰める
		suffix := fmt.Sprintf("%d", g.randInt(suffixBound))
		trimmed := truncateRunes(base, model.NicknameMaxLength-len(suffix))
		candidate = trimmed + suffix
	}

	return "", model.NewNicknameExhaustedError()
}

// normalizeBase は表示名をサニタイズし、空になった場合は基底名で代替する。
func (g *NicknameGenerator) normalizeBase(base string) string {
	base = strings.TrimSpace(g.sanitize.Sanitize(base))
	if base == "" {
		return fallbackNickname
	}
	return base
}

// truncateRunes は文字列をrune単位でmax文字に切り詰める。
// マルチバイト文字の途中で切れることを防ぐ。
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
