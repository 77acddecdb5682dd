package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は外部テキストのサニタイズのインターフェース。
type ContentSanitizerService interface {
	// Sanitize は文字列からすべてのHTMLマークアップを除去する。
	Sanitize(input string) string
}

// ContentSanitizer は外部APIから取得した記述フィールドのサニタイザー。
// キャラクターデータはクライアントでそのまま描画されるため、
// タグを一切許可しないStrictPolicyを適用する。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は文字列からすべてのHTMLマークアップを除去し、前後の空白を取り除く。
func (s *ContentSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// compile-time interface check
var _ ContentSanitizerService = (*ContentSanitizer)(nil)
