package usecase

import (
	"math"
	"sort"
	"strings"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/shared/textnorm"
)

const (
	// MinColumnGap は列分割の閾値の下限です（プロバイダー座標系の単位）。
	MinColumnGap = 40.0
	// ColumnGapWidthRatio はブロック幅の中央値に掛ける係数です。
	ColumnGapWidthRatio = 0.6
)

// ColumnGap はブロック幅の中央値から列分割の閾値 max(40, 0.6 × median) を計算します。
func ColumnGap(blocks []entity.TextBlock) float64 {
	if len(blocks) == 0 {
		return MinColumnGap
	}
	widths := make([]float64, len(blocks))
	for i, b := range blocks {
		widths[i] = b.Width()
	}
	return math.Max(MinColumnGap, ColumnGapWidthRatio*median(widths))
}

// GroupIntoSpines はOCRブロックを水平方向の近さで列（背表紙）にまとめます。
func GroupIntoSpines(blocks []entity.TextBlock) []entity.Spine {
	if len(blocks) == 0 {
		return nil
	}
	return GroupIntoSpinesWithGap(blocks, ColumnGap(blocks))
}

// GroupIntoSpinesWithGap は指定した閾値でブロックを列にまとめます。
// 水平中心でソートした隣接ブロックの中心差が gap を超えたところで新しい列を開始します。
func GroupIntoSpinesWithGap(blocks []entity.TextBlock, gap float64) []entity.Spine {
	if len(blocks) == 0 {
		return nil
	}

	sorted := make([]entity.TextBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CenterX() < sorted[j].CenterX()
	})

	var columns [][]entity.TextBlock
	current := []entity.TextBlock{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if math.Abs(sorted[i].CenterX()-sorted[i-1].CenterX()) > gap {
			columns = append(columns, current)
			current = nil
		}
		current = append(current, sorted[i])
	}
	columns = append(columns, current)

	spines := make([]entity.Spine, 0, len(columns))
	for _, col := range columns {
		spines = append(spines, buildSpine(col))
	}
	return spines
}

// buildSpine は列内のブロックを上から下へ並べてテキストを連結します。
func buildSpine(col []entity.TextBlock) entity.Spine {
	sort.SliceStable(col, func(i, j int) bool {
		return col[i].CenterY() < col[j].CenterY()
	})

	var sumX float64
	parts := make([]string, 0, len(col))
	for _, b := range col {
		sumX += b.CenterX()
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}

	return entity.Spine{
		CenterX: sumX / float64(len(col)),
		Blocks:  col,
		Text:    textnorm.CollapseSpaces(strings.Join(parts, " ")),
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
