package commands

import (
	"log/slog"
	"os"

	"cuhk-timetable/googlecalendar"
	"cuhk-timetable/uploader"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	clearCalendar *bool
	calendarID    *string
)

func init() {
	clearCalendar = syncCmd.Flags().Bool("clear", false, "Delete every event in the calendar before syncing.")
	calendarID = syncCmd.Flags().String("calendar", "", "Google Calendar id, defaults to the config value.")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(calendarsCmd)
	rootCmd.AddCommand(publishCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync <ics-file>",
	Short: "Makes a Google Calendar hold exactly the events of an exported ICS file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		id := firstNonEmpty(*calendarID, cfg.Google.CalendarID)
		service, err := googlecalendar.GetCalendarService(ctx, cfg.Google)
		if err != nil {
			fatal("failed to get Google Calendar service", err)
		}
		result, err := googlecalendar.AddICSEventsToCalendar(ctx, service, id, args[0], *clearCalendar)
		if err != nil {
			fatal("failed to sync Google Calendar", err)
		}
		slog.Info("calendar synced",
			"calendar", id,
			"inserted", result.Inserted,
			"updated", result.Updated,
			"deleted", result.Deleted,
		)
	},
}

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "Lists the Google calendars that sync can write to.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		service, err := googlecalendar.GetCalendarService(ctx, cfg.Google)
		if err != nil {
			fatal("failed to get Google Calendar service", err)
		}
		entries, err := googlecalendar.GetUserCalendars(ctx, service)
		if err != nil {
			fatal("failed to list calendars", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name", "Access"})
		for _, e := range entries {
			t.AppendRow(table.Row{e.Id, e.Summary, e.AccessRole})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <file>",
	Short: "Uploads an exported file to the GitHub repository in the config.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := uploader.New(cfg.GitHub).Upload(cmd.Context(), args[0]); err != nil {
			fatal("failed to publish", err)
		}
		slog.Info("published", "file", args[0], "repo", cfg.GitHub.Repo)
	},
}
