package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType はOAuth2のトークン種別。
const TokenType = "bearer"

// minSecretLength は署名鍵の最小バイト長。
const minSecretLength = 32

var (
	// ErrInvalidToken は署名不正・形式不正・subject欠落のトークンに対して返される。
	ErrInvalidToken = errors.New("invalid access token")
	// ErrExpiredToken は有効期限切れのトークンに対して返される。
	ErrExpiredToken = errors.New("access token expired")
)

// TokenManager はHS256署名のアクセストークンを発行・検証する。
// 生成後は不変で、並行利用できる。
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string) (*TokenManager, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d bytes", minSecretLength)
	}
	return &TokenManager{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// WithClock は現在時刻の取得元を差し替えたTokenManagerを返す。テスト用。
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	return &TokenManager{secret: m.secret, now: now}
}

// CreateAccessToken はusernameをsubjectとするトークンを発行し、有効期限とともに返す。
// 有効期限は秒精度に切り捨てられる。
func (m *TokenManager) CreateAccessToken(username string, ttl time.Duration) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := jwt.NewNumericDate(issuedAt.Add(ttl))

	claims := jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: expiresAt,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt.Time, nil
}

// ParseAccessToken はトークンの署名と有効期限を検証し、subject（username）を返す。
// now < exp の間のみ有効で、now >= exp でErrExpiredTokenを返す。
func (m *TokenManager) ParseAccessToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
