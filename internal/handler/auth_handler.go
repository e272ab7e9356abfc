// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/auth"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/metrics"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password string) (*model.Account, error)
	Login(ctx context.Context, username, password string) (*auth.Token, error)
}

// credentialsRequest はサインアップ・ログインのリクエストボディ。
type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

// accountResponse はアカウント情報のレスポンス。パスワードハッシュは含めない。
type accountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthHandler はサインアップ・ログインのHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &AuthHandler{
		service:   service,
		collector: collector,
	}
}

// Signup はアカウントを新規登録する。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	// 長さの検証は前後の空白を除いたユーザー名に対して行う
	req.Username = strings.TrimSpace(req.Username)
	if apiErr := validateRequest(&req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	account, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.collector.RecordSignup()
	writeJSON(w, http.StatusOK, accountResponse{
		ID:       account.ID,
		Username: account.Username,
	})
}

// Login は資格情報を検証し、アクセストークンを発行する。
// POST /login
//
// application/x-www-form-urlencoded（OAuth2パスワードフロー形式）とJSONの両方を受け付ける。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, apiErr := readLoginRequest(w, r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("username and password are required"))
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var svcErr *model.APIError
		if errors.As(err, &svcErr) && svcErr.Code == model.ErrCodeInvalidCredentials {
			h.collector.RecordLogin(false)
		}
		handleServiceError(w, err)
		return
	}

	h.collector.RecordLogin(true)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})
}

// readLoginRequest はContent-Typeに応じてログインリクエストを読み取る。
func readLoginRequest(w http.ResponseWriter, r *http.Request) (credentialsRequest, *model.APIError) {
	var req credentialsRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
			return req, apiErr
		}
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := r.ParseForm(); err != nil {
		return req, model.NewInvalidRequestError()
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, nil
}
