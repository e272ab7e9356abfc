// Package auth はパスワード認証とアクセストークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/repository"
)

// DefaultAccessTokenTTL はアクセストークンのデフォルト有効期間。
const DefaultAccessTokenTTL = 30 * time.Minute

// Token はログイン成功時に返すアクセストークン。
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	AccessTokenTTL time.Duration // アクセストークン有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accounts repository.AccountRepository
	hasher   *PasswordHasher
	tokens   *TokenManager
	config   ServiceConfig
	now      func() time.Time

	// dummyHash はユーザー不在時にも照合処理を行い、応答時間からユーザーの存在を推測されないようにする。
	dummyHash string
}

// NewService はServiceを生成する。
func NewService(
	accounts repository.AccountRepository,
	hasher *PasswordHasher,
	tokens *TokenManager,
	config ServiceConfig,
) (*Service, error) {
	if config.AccessTokenTTL <= 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}

	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Service{
		accounts:  accounts,
		hasher:    hasher,
		tokens:    tokens,
		config:    config,
		now:       time.Now,
		dummyHash: dummyHash,
	}, nil
}

// Register はアカウントを新規登録する。
// ユーザー名が既に使われている場合はUSERNAME_TAKENエラーを返す。
func (s *Service) Register(ctx context.Context, username, password string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, model.NewValidationError("username and password are required")
	}

	existing, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError()
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, ErrPasswordTooLong) {
		return nil, model.NewValidationError("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// 事前確認とINSERTの間に同名アカウントが作成された場合
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account registered",
		slog.String("user_id", account.ID),
		slog.String("username", account.Username),
	)

	return account, nil
}

// Authenticate はユーザー名とパスワードを照合する。
// ユーザー不在・パスワード不一致のどちらの場合もnil, nilを返し、呼び出し元からは区別できない。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	account, err := s.accounts.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if account == nil {
		s.hasher.Verify(s.dummyHash, password)
		return nil, nil
	}
	if !s.hasher.Verify(account.PasswordHash, password) {
		return nil, nil
	}

	return account, nil
}

// Login は認証に成功した場合にアクセストークンを発行する。
// 認証失敗時はINVALID_CREDENTIALSエラーを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	account, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if account == nil {
		slog.Warn("login failed")
		return nil, model.NewInvalidCredentialsError()
	}

	accessToken, expiresAt, err := s.tokens.CreateAccessToken(account.Username, s.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", account.ID))

	return &Token{
		AccessToken: accessToken,
		TokenType:   TokenType,
		ExpiresAt:   expiresAt,
	}, nil
}

// ResolveCurrentAccount はアクセストークンを検証し、対応するアカウントを返す。
// 署名不正・期限切れ・アカウント不在の場合はUNAUTHORIZEDエラーを返す。
func (s *Service) ResolveCurrentAccount(ctx context.Context, accessToken string) (*model.Account, error) {
	if accessToken == "" {
		return nil, model.NewUnauthorizedError()
	}

	username, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		slog.Debug("access token rejected", slog.String("reason", err.Error()))
		return nil, model.NewUnauthorizedError()
	}

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	if account == nil {
		return nil, model.NewUnauthorizedError()
	}

	return account, nil
}
