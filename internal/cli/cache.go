package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(build Builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the catalog lookup cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete cached catalog lookups (expired rows only for the SQL cache)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			n, err := deps.Cache.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to purge cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d cached lookups\n", n)
			return nil
		},
	})
	return cmd
}
