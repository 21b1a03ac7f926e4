package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Bitlatte/pressroom/internal/config"
	"github.com/Bitlatte/pressroom/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the static site from the content directory",
	Long: `The build command loads every Markdown file under the content directory,
orders the articles newest first, groups them by tag and writes the site to
the output directory (default './public/'). Static assets are copied as is.

Malformed articles are skipped with a warning unless --strict is given, in
which case the first one fails the build. A failed build leaves the previous
output untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err := runBuild(ctx, appConfig, cmd.OutOrStdout())
		return err
	},
}

func runBuild(ctx context.Context, cfg *config.Config, out io.Writer) (*site.Report, error) {
	report, err := site.NewBuilder(cfg, afero.NewOsFs(), logger).Build(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "Built %d pages from %d documents (%d tags) into %s in %s\n",
		report.Pages, report.Documents, report.Tags, report.OutputDir, report.Duration.Round(time.Millisecond))
	if report.Drafts > 0 {
		fmt.Fprintf(out, "Skipped %d drafts\n", report.Drafts)
	}
	if len(report.Failures) > 0 {
		fmt.Fprintf(out, "Skipped %d malformed documents:\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Fprintf(out, "  - %s: %v\n", f.Path, f.Err)
		}
	}
	return report, nil
}

func init() {
	buildCmd.Flags().Bool("strict", false, "fail the build on the first malformed document")
	buildCmd.Flags().Bool("drafts", false, "include documents marked as drafts")
	buildCmd.Flags().StringP("output", "o", "", "output directory (default is ./public)")
	rootCmd.AddCommand(buildCmd)
}
