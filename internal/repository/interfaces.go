// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// ErrDuplicateUsername はusernameの一意制約に違反した場合に返される。
var ErrDuplicateUsername = errors.New("username already exists")

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByUsername はユーザー名でアカウントを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Account, error)

	// Create はアカウントを作成する。
	// usernameが既に存在する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, account *model.Account) error
}

// PredictionRepository は収量推定記録の永続化インターフェース。
type PredictionRepository interface {
	// Create は推定記録を1件作成する。入力値と導出値は同一のINSERTで書き込む。
	Create(ctx context.Context, prediction *model.Prediction) error

	// ListByUserID は指定ユーザーが所有する推定記録をcreated_at降順で返す。
	// 0件の場合は空スライスを返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Prediction, error)
}
