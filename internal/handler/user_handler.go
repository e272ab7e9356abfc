package handler

import (
	"net/http"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/middleware"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// UserHandler はログインユーザー情報のHTTPハンドラー。
type UserHandler struct{}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me は現在のログインユーザー情報を返す。
// GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		ID:       account.ID,
		Username: account.Username,
	})
}
