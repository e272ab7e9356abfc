// Command maizemate はMaizeMateバックエンドのエントリーポイント。
//
// サブコマンド:
//
//	serve       APIサーバーを起動する（デフォルト）
//	migrate     データベースマイグレーションを適用する
//	healthcheck /healthに問い合わせ、異常時は非0で終了する
package main

import (
	"fmt"
	"os"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "maizemate: %v\n", err)
		os.Exit(1)
	}
}
