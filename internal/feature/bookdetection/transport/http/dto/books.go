// Package dto はbookdetectionフィーチャーのHTTPリクエスト/レスポンス型を定義します。
package dto

// ErrorResponse は単純なエラーレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// DetectFailureResponse は書籍検出に失敗した場合のレスポンスです。
// suggestion はユーザーがそのまま表示できる対処方法です。
type DetectFailureResponse struct {
	Success    bool   `json:"success"`
	Kind       string `json:"kind"`
	Error      string `json:"error"`
	Suggestion string `json:"suggestion"`
	Retryable  bool   `json:"retryable"`
}

// EnrichRequest は POST /v1/books/enrich のリクエストボディです。
type EnrichRequest struct {
	Titles []string `json:"titles" binding:"required"`
}
