// Package llmprompt は構造化プロバイダー（Gemini, OpenAI）で共有するプロンプトと応答パーサーを提供します。
package llmprompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
)

// BookListPrompt は本棚画像から書籍一覧をJSONで返させるプロンプトです。
const BookListPrompt = `You are looking at a photo of a bookshelf. List every book whose spine or cover you can read.
Respond with JSON only, in the form {"books":[{"title":"...","author":"...","mood":"..."}]}.
Use the title as printed, without series numbers or subtitles you cannot read.
Leave "author" empty if it is not visible.
"mood" must be one of: romantic, thrilling, dark, literary, uplifting, cozy.
If no books are readable, respond with {"books":[]}.`

// ErrMalformedResponse はモデルの応答がJSONとして解釈できない場合のエラーです。
var ErrMalformedResponse = errors.New("malformed model response")

var validMoods = map[string]struct{}{
	"romantic": {}, "thrilling": {}, "dark": {}, "literary": {}, "uplifting": {}, "cozy": {},
}

type bookList struct {
	Books []entity.StructuredBook `json:"books"`
}

// ParseBooks はモデル出力のJSON（オブジェクト形式または配列形式、コードフェンス付きも可）を解析します。
// タイトルが空の要素と未知のムードは取り除かれます。
func ParseBooks(raw string) ([]entity.StructuredBook, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var books []entity.StructuredBook
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &books); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	} else {
		var list bookList
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		books = list.Books
	}

	out := make([]entity.StructuredBook, 0, len(books))
	for _, b := range books {
		b.Title = strings.TrimSpace(b.Title)
		b.Author = strings.TrimSpace(b.Author)
		b.Mood = strings.ToLower(strings.TrimSpace(b.Mood))
		if b.Title == "" {
			continue
		}
		if _, ok := validMoods[b.Mood]; !ok {
			b.Mood = ""
		}
		out = append(out, b)
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
