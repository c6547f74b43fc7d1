package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"cuhk-timetable/fetcher"
	"cuhk-timetable/scraper"

	"github.com/spf13/cobra"
)

var (
	fetchTeachingFlags extractFlags
	fetchScheduleFlags extractFlags
	headless           *bool
)

func init() {
	fetchTeachingFlags.register(fetchTeachingCmd, termFlags|courseFlags)
	fetchScheduleFlags.register(fetchScheduleCmd, termFlags)
	headless = rootCmd.PersistentFlags().Bool("headless", false, "Run the browser without a window.")

	rootCmd.AddCommand(fetchTeachingCmd)
	rootCmd.AddCommand(fetchScheduleCmd)
}

func openBrowser(cmd *cobra.Command) *fetcher.Session {
	opts := fetcher.BrowserOptions{
		Headless: cfg.Browser.Headless,
		Timeout:  time.Duration(cfg.Browser.TimeoutSeconds) * time.Second,
	}
	if cmd.Flags().Changed("headless") {
		opts.Headless = *headless
	}
	session, err := fetcher.Open(opts)
	if err != nil {
		fatal("failed to open browser", err)
	}
	return session
}

var fetchTeachingCmd = &cobra.Command{
	Use:   "fetch-teaching",
	Short: "Searches the Teaching Timetable in a browser for the selected classes and exports them.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		opts, err := fetchTeachingFlags.options(cfg)
		if err != nil {
			fatal("invalid options", err)
		}
		if len(opts.Selected) == 0 {
			fatal("nothing to fetch", errors.New("pass --selected, --selected-file or set selected in the config"))
		}
		subjects := scraper.InferSubjects(opts.Selected)
		if len(subjects) == 0 {
			fatal("nothing to fetch", errors.New("no course subject could be read from the selection, use codes like ROSE5720"))
		}
		slog.Info("searching subjects", "subjects", subjects)

		session := openBrowser(cmd)
		pages, err := fetcher.FetchTeaching(ctx, session, fetcher.NewLinePrompter(os.Stdin, os.Stdout), cfg.TeachingURL, subjects)
		if cerr := session.Close(); cerr != nil {
			slog.Warn("failed to close browser", "err", cerr)
		}
		if err != nil {
			fatal("failed to fetch teaching timetable", err)
		}

		records, err := extractPages(ctx, pages, subjects, opts)
		if err != nil {
			fatal("failed to extract teaching timetable", err)
		}
		if _, err := writeOutput(ctx, records); err != nil {
			fatal("failed to write output", err)
		}
	},
}

// extractPages extracts every results page and merges them. A page whose
// classes are all filtered out by the selection is skipped.
func extractPages(ctx context.Context, pages, subjects []string, opts scraper.Options) ([]scraper.Record, error) {
	var batches [][]scraper.Record
	for i, htmlText := range pages {
		pageOpts := opts
		if pageOpts.SubjectHint == "" && i < len(subjects) {
			pageOpts.SubjectHint = subjects[i]
		}
		records, err := scraper.ExtractTeachingTimetable(ctx, htmlText, pageOpts)
		if errors.Is(err, scraper.ErrNoClassRows) {
			slog.Warn("no selected classes on page", "subject", pageOpts.SubjectHint)
			continue
		}
		if err != nil {
			return nil, err
		}
		batches = append(batches, records)
	}
	merged := scraper.MergeRecords(batches...)
	if len(merged) == 0 {
		return nil, scraper.ErrNoClassRows
	}
	return merged, nil
}

var fetchScheduleCmd = &cobra.Command{
	Use:   "fetch-schedule",
	Short: "Walks My Weekly Schedule in CUSIS week by week and exports every meeting.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		opts, err := fetchScheduleFlags.options(cfg)
		if err != nil {
			fatal("invalid options", err)
		}

		session := openBrowser(cmd)
		records, err := fetcher.FetchSchedule(ctx, session, fetcher.NewLinePrompter(os.Stdin, os.Stdout), cfg.CUSISURL, fetcher.ScheduleOptions{
			TermStart: opts.TermStart,
			TermEnd:   opts.TermEnd,
		})
		if cerr := session.Close(); cerr != nil {
			slog.Warn("failed to close browser", "err", cerr)
		}
		if err != nil {
			fatal("failed to fetch weekly schedule", err)
		}
		if _, err := writeOutput(ctx, records); err != nil {
			fatal("failed to write output", err)
		}
	},
}
