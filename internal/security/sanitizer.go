// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザーが入力する文字列（カフェ名、所在地、
// 価格表示、ユーザー名など）からHTMLタグを除去し、XSS攻撃などの
// セキュリティリスクからユーザーを保護する。
// bluemondayライブラリのStrictPolicyにより全タグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキストのサニタイズ機能のインターフェースを定義する。
// ユーザー入力の保存前に使用される。
type TextSanitizerService interface {
	// SanitizeText は入力文字列からすべてのHTMLタグを除去し、
	// 前後の空白をトリムして返す。
	// script/styleタグはその内容ごと除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(input string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはいかなるタグ・属性も許可しない。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力文字列からすべてのHTMLタグを除去して返す。
func (s *textSanitizer) SanitizeText(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
