package entity

// Identifier はカタログレコードの識別子（ISBN_10, ISBN_13 など）です。
type Identifier struct {
	Type  string
	Value string
}

// ImageLinks はカタログレコードの表紙画像URLです。
type ImageLinks struct {
	Thumbnail      string
	SmallThumbnail string
}

// CatalogRecord は外部カタログの検索結果1件です。
type CatalogRecord struct {
	Title         string
	Authors       []string
	Identifiers   []Identifier
	PageCount     int
	Description   string
	ImageLinks    ImageLinks
	Categories    []string
	AverageRating float64
	PublishedDate string
}

// MatchCandidate はクエリに対してスコア付けされたカタログ候補です。照合中のみ使用されます。
type MatchCandidate struct {
	Record       CatalogRecord
	Score        float64
	Rejected     bool
	RejectReason string
}

// MatchResult はカタログ照合で採用された結果です。
type MatchResult struct {
	Query      string            `json:"query"`
	Title      string            `json:"title"`
	Author     string            `json:"author,omitempty"`
	Score      float64           `json:"score"`
	Mood       string            `json:"mood"`
	Enrichment CatalogEnrichment `json:"enrichment"`
}

// BatchResult はバッチ照合の結果です。Unmatched は入力をそのまま保持します。
type BatchResult struct {
	Matched   []MatchResult `json:"matched"`
	Unmatched []string      `json:"unmatched"`
}

// DetectionResult は画像からの書籍検出パイプラインの結果です。
type DetectionResult struct {
	Success      bool           `json:"success"`
	Books        []DetectedBook `json:"books"`
	ProviderUsed string         `json:"provider_used"`
}
