// Package model はドメインモデルを定義する。
package model

import "time"

// Account はサービス利用者のアカウントを表す。
// 登録後に変更・削除されることはない。
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
