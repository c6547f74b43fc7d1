package commands

import (
	"io"
	"log/slog"
	"os"

	"cuhk-timetable/pagesource"
	"cuhk-timetable/scraper"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	teachingFlags extractFlags
	listClasses   *bool
)

func init() {
	teachingFlags.register(teachingCmd, termFlags|courseFlags)
	listClasses = teachingCmd.Flags().Bool("list-classes", false, "Print the classes on the page and exit.")
	rootCmd.AddCommand(teachingCmd)
}

var teachingCmd = &cobra.Command{
	Use:   "teaching <html-or-url>",
	Short: "Exports a saved or online CUHK teaching timetable page.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		opts, err := teachingFlags.options(cfg)
		if err != nil {
			fatal("invalid options", err)
		}
		htmlText, err := pagesource.Load(ctx, args[0])
		if err != nil {
			fatal("failed to load teaching timetable", err)
		}

		if *listClasses {
			// list everything, the selection is what the listing helps to build
			opts.Selected = nil
			records, err := scraper.ExtractTeachingTimetable(ctx, htmlText, opts)
			if err != nil {
				fatal("failed to extract teaching timetable", err)
			}
			renderClasses(os.Stdout, scraper.ListClasses(records))
			return
		}

		records, err := scraper.ExtractTeachingTimetable(ctx, htmlText, opts)
		if err != nil {
			fatal("failed to extract teaching timetable", err)
		}
		if _, err := writeOutput(ctx, records); err != nil {
			fatal("failed to write output", err)
		}
	},
}

func renderClasses(w io.Writer, listings []scraper.ClassListing) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Code", "Nbr", "Title"})
	for _, l := range listings {
		t.AppendRow(table.Row{l.ClassCode, l.ClassNumber, l.Title})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	slog.Debug("listed classes", "count", len(listings))
}
