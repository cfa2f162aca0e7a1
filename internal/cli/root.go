// Package cli implements the shelfctl command tree.
package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"shelfscan_backend/internal/app/di"
	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
)

// Service is the subset of the pipeline the commands drive.
type Service interface {
	DetectBooksFromImage(ctx context.Context, image []byte) (entity.DetectionResult, error)
	Enrich(ctx context.Context, titles []string) entity.BatchResult
}

// Deps are the components a command needs. Close releases them.
type Deps struct {
	Service Service
	Cache   di.CachePurger
	Close   func()
}

// Builder constructs Deps once flags are parsed.
type Builder func(ctx context.Context) (*Deps, error)

// DefaultBuilder wires the application from environment variables, as the server does.
func DefaultBuilder(ctx context.Context) (*Deps, error) {
	cfg := di.LoadConfig()
	app, err := di.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Deps{Service: app.Pipeline, Cache: app.Cache, Close: app.Close}, nil
}

type options struct {
	output string
	out    string
	level  string
}

// NewRootCmd returns the shelfctl root command wired with DefaultBuilder.
func NewRootCmd() *cobra.Command {
	return newRootCmd(DefaultBuilder)
}

func newRootCmd(build Builder) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "shelfctl",
		Short: "Detect books in bookshelf photos and enrich them from the catalog",
		Long: `shelfctl runs the shelf scanning pipeline locally.

It uses the same provider cascade, title extraction and catalog matching as the HTTP
service, configured through the same environment variables (.env is loaded if present).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			level := opts.level
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			di.InstallDefaultLogger(cmd.ErrOrStderr(), level, os.Getenv("LOG_FORMAT"))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", formatJSON, "output format: json, yaml or parquet")
	cmd.PersistentFlags().StringVar(&opts.out, "out", "", "write output to this file instead of stdout")
	cmd.PersistentFlags().StringVar(&opts.level, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newDetectCmd(opts, build))
	cmd.AddCommand(newEnrichCmd(opts, build))
	cmd.AddCommand(newCacheCmd(build))

	return cmd
}
