package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newEnrichCmd(opts *options, build Builder) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "enrich [title...]",
		Short: "Match book titles against the catalog",
		Long: `Match book titles against the catalog.

Titles are taken from the arguments and, with --file, one per line from a text file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			titles := cleanTitles(args)
			if file != "" {
				fromFile, err := readTitles(file)
				if err != nil {
					return err
				}
				titles = append(titles, fromFile...)
			}
			if len(titles) == 0 {
				return fmt.Errorf("no titles given")
			}
			if opts.output == formatParquet && opts.out == "" {
				return errParquetNeedsFile
			}

			deps, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			res := deps.Service.Enrich(cmd.Context(), titles)

			w, closeOut, err := openOutput(cmd.OutOrStdout(), opts.out)
			if err != nil {
				return err
			}
			if opts.output == formatParquet {
				err = writeParquet(w, enrichRows(res))
			} else {
				err = writeDocument(w, opts.output, res)
			}
			if err != nil {
				_ = closeOut()
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "matched %d of %d titles\n", len(res.Matched), len(titles))
			return closeOut()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read titles from a file, one per line")

	return cmd
}

func cleanTitles(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func readTitles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open titles file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles file: %w", err)
	}
	return cleanTitles(lines), nil
}
