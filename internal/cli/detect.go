package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shelfscan_backend/internal/feature/bookdetection/domain"
	"shelfscan_backend/internal/shared/requestid"
)

func newDetectCmd(opts *options, build Builder) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <image>",
		Short: "Detect the books in a bookshelf photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == formatParquet {
				return fmt.Errorf("detect supports json or yaml output")
			}

			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			deps, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx := requestid.WithID(cmd.Context(), requestid.New())
			result, err := deps.Service.DetectBooksFromImage(ctx, image)
			if err != nil {
				info := domain.Describe(err)
				fmt.Fprintln(cmd.ErrOrStderr(), info.Suggestion)
				return fmt.Errorf("%s: %w", info.Message, err)
			}

			w, closeOut, err := openOutput(cmd.OutOrStdout(), opts.out)
			if err != nil {
				return err
			}
			if err := writeDocument(w, opts.output, result); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}
}
