package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプロバイダ由来テキストのサニタイズ機能のインターフェースを定義する。
// バイオとキャプションはストアにプレーンテキストとして保存するため、
// マークアップは一切通さない。
type TextSanitizerService interface {
	// SanitizeText はテキストからHTMLマークアップを全て除去して返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// プロフィールのバイオやコンテンツのキャプションにHTMLが紛れ込んでも、
// ストアのテキストフィールドにはタグを残さない。
func NewTextSanitizer() TextSanitizerService {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はテキストからマークアップを除去し、前後の空白を整える。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
