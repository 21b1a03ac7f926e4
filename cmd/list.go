package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Bitlatte/pressroom/internal/config"
	"github.com/Bitlatte/pressroom/internal/index"
	"github.com/Bitlatte/pressroom/internal/loader"
	"github.com/Bitlatte/pressroom/internal/model"
	"github.com/Bitlatte/pressroom/internal/render"
)

const maxTitleWidth = 48

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the documents in publication order",
	Long: `The list command loads the content directory and prints one row per
document, newest first, with its date, identifier, title and tags. Documents
that fail to load are listed after the table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context(), appConfig, afero.NewOsFs(), cmd.OutOrStdout())
	},
}

func runList(ctx context.Context, cfg *config.Config, fs afero.Fs, out io.Writer) error {
	l := loader.New(afero.NewIOFS(afero.NewBasePathFs(fs, cfg.ContentDir)), loader.Options{
		Workers:  cfg.Workers,
		Logger:   logger,
		Reserved: render.ReservedIDs(),
	})
	paths, err := l.Discover(".")
	if err != nil {
		return err
	}
	result, err := l.LoadAll(ctx, paths)
	if err != nil {
		return err
	}
	idx, err := index.Build(result.Documents, index.Options{})
	if err != nil {
		return err
	}

	rows := [][]string{{"DATE", "ID", "TITLE", "TAGS"}}
	for _, d := range idx.Documents() {
		rows = append(rows, documentRow(d))
	}
	writeTable(out, rows)

	for _, f := range result.Failures {
		fmt.Fprintf(out, "skipped %s: %v\n", f.Path, f.Err)
	}
	return nil
}

func documentRow(d *model.Document) []string {
	title := runewidth.Truncate(d.Title, maxTitleWidth, "…")
	if d.Draft {
		title += " (draft)"
	}
	return []string{d.Date.Format("2006-01-02"), d.ID, title, strings.Join(d.Tags, ", ")}
}

// writeTable pads every column to its widest cell by display width, so
// wide characters line up in a terminal.
func writeTable(out io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(out, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
