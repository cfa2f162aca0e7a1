// Package entity はbookdetectionフィーチャーのドメインモデルを定義します。
package entity

// BoundingBox はOCRプロバイダーの座標系における矩形領域です。
type BoundingBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// TextBlock はOCRが返すテキスト断片とその位置を表します。
type TextBlock struct {
	Text       string      // 認識された生テキスト
	Box        BoundingBox // 外接矩形
	Confidence float32     // 検出信頼度（0.0 ~ 1.0）
}

// CenterX はブロックの水平方向の中心を返します。
func (b TextBlock) CenterX() float64 {
	return (b.Box.MinX + b.Box.MaxX) / 2
}

// CenterY はブロックの垂直方向の中心を返します。
func (b TextBlock) CenterY() float64 {
	return (b.Box.MinY + b.Box.MaxY) / 2
}

// Width はブロックの幅を返します。縮退した矩形では0になります。
func (b TextBlock) Width() float64 {
	if w := b.Box.MaxX - b.Box.MinX; w > 0 {
		return w
	}
	return 0
}

// Spine は同じ列（1冊の背表紙）に属すると判断されたブロックの集合です。
type Spine struct {
	CenterX float64     // 列の水平中心
	Blocks  []TextBlock // 上から下の順に並んだブロック
	Text    string      // 上から下へ連結したテキスト
}

// OCRResult はOCRプロバイダーの出力です。Blocks は省略されることがあります。
type OCRResult struct {
	Text   string
	Blocks []TextBlock
}

// HasGeometry はブロック座標が利用できるかを返します。
func (r OCRResult) HasGeometry() bool {
	return len(r.Blocks) > 0
}
