package account

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nodap/nodap-server/internal/model"
)

// mockUserRepo はUserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFunc                    func(ctx context.Context, id string) (*model.User, error)
	existsByNicknameFunc            func(ctx context.Context, nickname string) (bool, error)
	createWithOauthAccountFunc      func(ctx context.Context, user *model.User, account *model.OauthAccount) error
	restoreWithOauthAccountFunc     func(ctx context.Context, userID, accountID string) error
	softDeleteWithOauthAccountFunc  func(ctx context.Context, userID string) error
	updateFunc                      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	return m.existsByNicknameFunc(ctx, nickname)
}

func (m *mockUserRepo) CreateWithOauthAccount(ctx context.Context, user *model.User, account *model.OauthAccount) error {
	return m.createWithOauthAccountFunc(ctx, user, account)
}

func (m *mockUserRepo) RestoreWithOauthAccount(ctx context.Context, userID, accountID string) error {
	return m.restoreWithOauthAccountFunc(ctx, userID, accountID)
}

func (m *mockUserRepo) SoftDeleteWithOauthAccount(ctx context.Context, userID string) error {
	return m.softDeleteWithOauthAccountFunc(ctx, userID)
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	return m.updateFunc(ctx, user)
}

func TestGenerate_BaseAvailable(t *testing.T) {
	repo := &mockUserRepo{
		existsByNicknameFunc: func(ctx context.Context, nickname string) (bool, error) {
			return false, nil
		},
	}
	gen := NewNicknameGenerator(repo)

	got, err := gen.Generate(context.Background(), "hong")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "hong" {
		t.Errorf("Generate = %q, want %q", got, "hong")
	}
}

func TestGenerate_CollisionAppendsSuffix(t *testing.T) {
	taken := map[string]bool{"hong": true}
	repo := &mockUserRepo{
		existsByNicknameFunc: func(ctx context.Context, nickname string) (bool, error) {
			return taken[nickname], nil
		},
	}
	gen := NewNicknameGenerator(repo).WithRandFunc(func(n int) int { return 42 })

	got, err := gen.Generate(context.Background(), "hong")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "hong42" {
		t.Errorf("Generate = %q, want %q", got, "hong42")
	}
}

func TestGenerate_LongBaseTruncatedToFitSuffix(t *testing.T) {
	base := strings.Repeat("あ", 30)
	calls := 0
	repo := &mockUserRepo{
		existsByNicknameFunc: func(ctx context.Context, nickname string) (bool, error) {
			calls++
			if utf8.RuneCountInString(nickname) > model.NicknameMaxLength {
				t.Errorf("候補がrune上限を超過: %q (%d runes)", nickname, utf8.RuneCountInString(nickname))
			}
			// 1回目（基底名そのまま）は使用済みにする
			return calls == 1, nil
		},
	}
	gen := NewNicknameGenerator(repo).WithRandFunc(func(n int) int { return 7 })

	got, err := gen.Generate(context.Background(), base)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.HasSuffix(got, "7") {
		t.Errorf("サフィックスが保持されていない: %q", got)
	}
	if utf8.RuneCountInString(got) > model.NicknameMaxLength {
		t.Errorf("生成結果がrune上限を超過: %q", got)
	}
}

func TestGenerate_EmptyBaseFallsBack(t *testing.T) {
	repo := &mockUserRepo{
		existsByNicknameFunc: func(ctx context.Context, nickname string) (bool, error) {
			return false, nil
		},
	}
	gen := NewNicknameGenerator(repo)

	got, err := gen.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != fallbackNickname {
		t.Errorf("Generate = %q, want %q", got, fallbackNickname)
	}
}

func TestGenerate_HTMLSanitized(t *testing.T) {
	repo := &mockUserRepo{
		existsByNicknameFunc: func(ctx context.Context, nickname string) (bool, error) {
			return false, nil
		},
	}
	gen := NewNicknameGenerator(repo)

	got, err := gen.Generate(context.Background(), "<script>alert(1)</script>")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Errorf("サニタイズ漏れ: %q", got)
	}
}

func TestGenerate_AllTakenReturnsExhausted(t *testing.T) {
	repo := &mockUserRepo{
		existsByNicknameFunc: func(ctx context.Context, nickname string) (bool, error) {
			return true, nil
		},
	}
	gen := NewNicknameGenerator(repo)

	_, err := gen.Generate(context.Background(), "hong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNicknameExhausted {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerate_SuffixedCandidateMatchesPattern(t *testing.T) {
	calls := 0
	repo := &mockUserRepo{
		existsByNicknameFunc: func(ctx context.Context, nickname string) (bool, error) {
			calls++
			return calls == 1, nil
		},
	}
	gen := NewNicknameGenerator(repo)

	got, err := gen.Generate(context.Background(), "Dev")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if matched := regexp.MustCompile(`^Dev\d+$`).MatchString(got); !matched {
		t.Errorf("サフィックス付き候補の形式が不正: %q", got)
	}
}

func TestGenerate_RepoErrorPropagates(t *testing.T) {
	repo := &mockUserRepo{
		existsByNicknameFunc: func(ctx context.Context, nickname string) (bool, error) {
			return false, errors.New("connection refused")
		},
	}
	gen := NewNicknameGenerator(repo)

	_, err := gen.Generate(context.Background(), "hong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
