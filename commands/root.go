package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cuhk-timetable/config"
	"cuhk-timetable/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath   *string
	outputBase   *string
	outputFormat *string

	cfg   config.Config
	telem telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "cuhk-timetable",
	Short: "cuhk-timetable exports CUHK timetables to ICS, CSV, JSON or XLSX.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal("failed to read config", err)
		}
		cfg = loaded

		if !cmd.Flags().Changed("output") && cfg.Output != "" {
			*outputBase = cfg.Output
		}
		if !cmd.Flags().Changed("format") && cfg.Format != "" {
			*outputFormat = cfg.Format
		}

		telem, err = telemetry.Setup(cmd.Context(), "cuhk-timetable", cfg.Telemetry)
		if err != nil {
			slog.Warn("telemetry disabled", "err", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := telem.Shutdown(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "err", err)
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the JSON5 config file.")
	outputBase = rootCmd.PersistentFlags().StringP("output", "o", "cuhk_timetable", "Output path, the extension is added from the format.")
	outputFormat = rootCmd.PersistentFlags().StringP("format", "f", "ics", "Output format: ics, csv, json or xlsx.")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log debug output.")
}

// Verbose reports whether --verbose was passed, for logger setup before
// cobra parses anything.
func Verbose(args []string) bool {
	for _, arg := range args {
		if arg == "--verbose" || arg == "--verbose=true" {
			return true
		}
	}
	return false
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var exit = os.Exit

// fatal logs err, flushes pending spans and exits.
func fatal(msg string, err error) {
	slog.Error(msg, "err", err.Error())
	if serr := telem.Shutdown(context.Background()); serr != nil {
		slog.Warn("failed to flush traces", "err", serr)
	}
	telem = telemetry.Telemetry{}
	exit(1)
}
