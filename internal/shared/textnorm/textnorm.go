// Package textnorm は書名の比較・重複排除に使う正規化処理を提供します。
package textnorm

import (
	"strings"
	"unicode"
)

// NormalizeTitle は文字列を小文字化し、句読点を除去し、連続する空白を1つにまとめます。
// 冪等であり、NormalizeTitle(NormalizeTitle(s)) == NormalizeTitle(s) が常に成り立ちます。
func NormalizeTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize は正規化した文字列を空白で分割したトークン列を返します。
func Tokenize(s string) []string {
	return strings.Fields(NormalizeTitle(s))
}

// CollapseSpaces は連続する空白を1つにまとめ、前後の空白を除去します。
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
