package entity

// Provenance は DetectedBook を生成した経路を表します。
type Provenance string

const (
	// ProvenanceStructured は構造化プロバイダーが書名を直接返したことを示します。
	ProvenanceStructured Provenance = "structured"
	// ProvenanceOCR はOCRテキストのヒューリスティック抽出のみで得られたことを示します。
	ProvenanceOCR Provenance = "ocr"
	// ProvenanceOCRCatalog はOCR抽出後にカタログ照合で補完されたことを示します。
	ProvenanceOCRCatalog Provenance = "ocr+catalog"
)

// StructuredBook は構造化プロバイダーが返す1冊分の情報です。
type StructuredBook struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	Mood   string `json:"mood,omitempty"`
}

// CatalogEnrichment はカタログから補完されたメタデータです。
type CatalogEnrichment struct {
	ISBN            string  `json:"isbn,omitempty"`
	Pages           int     `json:"pages,omitempty"`
	Description     string  `json:"description,omitempty"`
	CoverURL        string  `json:"cover_url,omitempty"`
	Genre           string  `json:"genre,omitempty"`
	AverageRating   float64 `json:"average_rating,omitempty"`
	PublicationYear int     `json:"publication_year,omitempty"`
}

// DetectedBook は1枚の画像から検出された本を表します。
type DetectedBook struct {
	Title      string             `json:"title"`
	Author     *string            `json:"author"`
	SpineText  string             `json:"spine_text,omitempty"`
	Mood       string             `json:"mood,omitempty"`
	Provider   string             `json:"provider"`
	Provenance Provenance         `json:"provenance"`
	Enrichment *CatalogEnrichment `json:"enrichment,omitempty"`
}

// TitleCandidate は書名らしいと判断された文字列です。
type TitleCandidate struct {
	Title      string
	Normalized string
}
