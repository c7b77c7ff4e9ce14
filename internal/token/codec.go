// Package token は署名付き有効期限付きトークンの発行と検証を提供する。
// トークンはJWT(HS256)で、subject（ユーザーID）とトークン種別を持つ。
// I/Oは行わず、同じ秘密鍵と時計に対して決定的に動作する。
package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Class はトークンの種別を表す。
type Class string

const (
	// ClassAccess は短命のAPIアクセス用トークンを示す。
	ClassAccess Class = "ACCESS"
	// ClassRefresh はAccess Token再発行専用の長命トークンを示す。
	ClassRefresh Class = "REFRESH"
)

var (
	// ErrExpired は署名は正しいが有効期限切れのトークンを示す。
	// 呼び出し側は再ログイン要求として扱う。
	ErrExpired = errors.New("token expired")
	// ErrMalformed は署名不正または構造不正のトークンを示す。
	// 署名エラーと構造エラーは区別せずこのエラーに集約する。
	ErrMalformed = errors.New("token malformed")
)

// Claims は検証済みトークンの内容を表す。
type Claims struct {
	Subject   string
	Class     Class
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// jwtClaims はJWTペイロードの内部表現。
type jwtClaims struct {
	Type string `json:"type"`
	jwtlib.RegisteredClaims
}

// Config はCodecの設定。
type Config struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// Codec はトークンの発行と検証を行う。
// 秘密鍵と有効期限は起動時に明示的に注入され、以降は変更されない。
type Codec struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration

	// now はテストでオーバーライド可能な時刻取得関数。
	now func() time.Time
}

// NewCodec はCodecを生成する。
func NewCodec(cfg Config) *Codec {
	return &Codec{
		secret:        []byte(cfg.Secret),
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
		now:           time.Now,
	}
}

// WithClock は時刻取得関数を差し替えたCodecを返す。テスト用。
func (c *Codec) WithClock(now func() time.Time) *Codec {
	clone := *c
	clone.now = now
	return &clone
}

// Issue はsubjectと種別を埋め込んだ署名付きトークンを発行する。
// 有効期限は種別ごとの設定値に従う。
func (c *Codec) Issue(subject string, class Class) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	var expiry time.Duration
	switch class {
	case ClassAccess:
		expiry = c.accessExpiry
	case ClassRefresh:
		expiry = c.refreshExpiry
	default:
		return "", fmt.Errorf("unknown token class: %q", class)
	}

	now := c.now()
	claims := jwtClaims{
		Type: string(class),
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(expiry)),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、内容を返す。
// 期限切れはErrExpired、それ以外の検証失敗はすべてErrMalformedを返す。
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(
		tokenString,
		&jwtClaims{},
		func(t *jwtlib.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}

	class := Class(claims.Type)
	if class != ClassAccess && class != ClassRefresh {
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}

	return &Claims{
		Subject:   claims.Subject,
		Class:     class,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyIgnoringExpiry は署名と構造のみを検証し、有効期限切れを許容する。
// ログアウト時のベストエフォートなsubject特定専用で、
// 認可判断に使用してはならない。
func (c *Codec) VerifyIgnoringExpiry(tokenString string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(
		tokenString,
		&jwtClaims{},
		func(t *jwtlib.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrMalformed
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok {
		return nil, ErrMalformed
	}

	class := Class(claims.Type)
	if class != ClassAccess && class != ClassRefresh {
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}

	return &Claims{
		Subject:   claims.Subject,
		Class:     class,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SubjectOf はトークンを検証した上でsubjectを返す。
func (c *Codec) SubjectOf(tokenString string) (string, error) {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ClassOf はトークンを検証した上で種別を返す。
func (c *Codec) ClassOf(tokenString string) (Class, error) {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Class, nil
}
