// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が自由入力した文字列からHTMLマークアップを除去し、
// 保存済みの値をブラウザで表示した際のXSSを防ぐ。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由入力テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は全てのタグを除去したプレーンテキストを返す。
	// 前後の空白は取り除かれる。タグを含まない入力はそのまま返る。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーは並行利用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストからHTMLタグを除去する。
// bluemondayは残したテキストをHTMLエスケープするため、エンティティを元の文字に戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
