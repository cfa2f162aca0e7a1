package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
)

const (
	formatJSON    = "json"
	formatYAML    = "yaml"
	formatParquet = "parquet"
)

var errParquetNeedsFile = errors.New("parquet output requires --out")

// enrichRow is one flattened enrichment result for parquet export.
// Unmatched titles are written with matched=false and empty catalog fields.
type enrichRow struct {
	Query           string  `parquet:"query"`
	Matched         bool    `parquet:"matched"`
	Title           string  `parquet:"title"`
	Author          string  `parquet:"author"`
	Score           float64 `parquet:"score"`
	Mood            string  `parquet:"mood"`
	ISBN            string  `parquet:"isbn"`
	Pages           int32   `parquet:"pages"`
	Genre           string  `parquet:"genre"`
	PublicationYear int32   `parquet:"publication_year"`
	AverageRating   float64 `parquet:"average_rating"`
	CoverURL        string  `parquet:"cover_url"`
}

func enrichRows(res entity.BatchResult) []enrichRow {
	rows := make([]enrichRow, 0, len(res.Matched)+len(res.Unmatched))
	for _, m := range res.Matched {
		rows = append(rows, enrichRow{
			Query:           m.Query,
			Matched:         true,
			Title:           m.Title,
			Author:          m.Author,
			Score:           m.Score,
			Mood:            m.Mood,
			ISBN:            m.Enrichment.ISBN,
			Pages:           int32(m.Enrichment.Pages),
			Genre:           m.Enrichment.Genre,
			PublicationYear: int32(m.Enrichment.PublicationYear),
			AverageRating:   m.Enrichment.AverageRating,
			CoverURL:        m.Enrichment.CoverURL,
		})
	}
	for _, q := range res.Unmatched {
		rows = append(rows, enrichRow{Query: q})
	}
	return rows
}

// openOutput returns stdout or the --out file.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// writeDocument writes v as indented JSON or as YAML using the same field names.
func writeDocument(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// writeYAML round-trips through JSON so YAML keys follow the json tags.
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle clears the flow style the JSON parse leaves on every collection.
func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writeParquet(w io.Writer, rows []enrichRow) error {
	pw := parquet.NewGenericWriter[enrichRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	return pw.Close()
}
