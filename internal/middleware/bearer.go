// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// bearerPrefix はAuthorizationヘッダーのスキーム部分。
const bearerPrefix = "bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// accountContextKey はリクエストコンテキストに認証済みアカウントを格納するためのキー。
var accountContextKey = contextKey("account")

// TokenResolver はアクセストークンからアカウントを解決する。
// auth.Serviceが実装する。
type TokenResolver interface {
	ResolveCurrentAccount(ctx context.Context, accessToken string) (*model.Account, error)
}

// NewBearerAuthMiddleware はAuthorization: Bearerヘッダーのアクセストークンを検証し、
// 認証済みアカウントをリクエストコンテキストに注入するミドルウェアを返す。
// トークンの欠落・無効・期限切れには401 UnauthorizedとWWW-Authenticateヘッダーを返す。
func NewBearerAuthMiddleware(resolver TokenResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteUnauthorized(w, model.NewUnauthorizedError())
				return
			}

			account, err := resolver.ResolveCurrentAccount(r.Context(), token)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteUnauthorized(w, apiErr)
					return
				}
				slog.Error("failed to resolve account",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			setLoggedUserID(r.Context(), account.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), account)))
		})
	}
}

// BearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// スキーム名の大文字小文字は区別しない。ヘッダーがない場合は空文字列を返す。
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// AccountFromContext はリクエストコンテキストから認証済みアカウントを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func AccountFromContext(ctx context.Context) (*model.Account, error) {
	account, ok := ctx.Value(accountContextKey).(*model.Account)
	if !ok || account == nil {
		return nil, fmt.Errorf("account not found in context")
	}
	return account, nil
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	account, err := AccountFromContext(ctx)
	if err != nil || account.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return account.ID, nil
}

// ContextWithAccount はコンテキストに認証済みアカウントを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}
