package commands

import (
	"cuhk-timetable/pagesource"
	"cuhk-timetable/scraper"

	"github.com/spf13/cobra"
)

var scheduleFlags extractFlags

func init() {
	scheduleFlags.register(scheduleCmd, termFlags|strictTermFlag)
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <html-or-url>",
	Short: "Exports a saved CUSIS My Weekly Schedule page as weekly events.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		opts, err := scheduleFlags.options(cfg)
		if err != nil {
			fatal("invalid options", err)
		}
		htmlText, err := pagesource.Load(ctx, args[0])
		if err != nil {
			fatal("failed to load schedule page", err)
		}
		if !pagesource.IsURL(args[0]) {
			htmlText, err = pagesource.ResolveFrame(args[0], htmlText)
			if err != nil {
				fatal("failed to read schedule frame", err)
			}
		}

		records, err := scraper.ExtractWeeklySchedule(ctx, htmlText, opts)
		if err != nil {
			fatal("failed to extract weekly schedule", err)
		}
		if _, err := writeOutput(ctx, records); err != nil {
			fatal("failed to write output", err)
		}
	},
}
