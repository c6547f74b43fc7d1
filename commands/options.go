package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuhk-timetable/config"
	"cuhk-timetable/export"
	"cuhk-timetable/scraper"

	"github.com/spf13/cobra"
)

// extractFlags are the flags shared by the commands that extract records.
// Each command registers only the groups it reads.
type extractFlags struct {
	termStart    string
	termEnd      string
	subjectHint  string
	selected     string
	selectedFile string
	strictTerm   bool
}

type flagGroup int

const (
	termFlags flagGroup = 1 << iota
	strictTermFlag
	// subject hint and selection
	courseFlags
)

func (f *extractFlags) register(cmd *cobra.Command, groups flagGroup) {
	if groups&termFlags != 0 {
		cmd.Flags().StringVar(&f.termStart, "term-start", "", "First day of the term (YYYY-MM-DD).")
		cmd.Flags().StringVar(&f.termEnd, "term-end", "", "Last day of the term (YYYY-MM-DD).")
	}
	if groups&strictTermFlag != 0 {
		cmd.Flags().BoolVar(&f.strictTerm, "strict-term", false, "Fail instead of guessing the term dates.")
	}
	if groups&courseFlags != 0 {
		cmd.Flags().StringVar(&f.subjectHint, "subject-hint", "", "Subject used when the page does not print one.")
		cmd.Flags().StringVar(&f.selected, "selected", "", "Comma separated class codes or class numbers to keep.")
		cmd.Flags().StringVar(&f.selectedFile, "selected-file", "", "File with one class code or class number per line.")
	}
}

// options layers the flags over the config file.
func (f *extractFlags) options(c config.Config) (scraper.Options, error) {
	var opts scraper.Options

	start, err := termDate("term start", f.termStart, c.Term.Start)
	if err != nil {
		return opts, err
	}
	end, err := termDate("term end", f.termEnd, c.Term.End)
	if err != nil {
		return opts, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return opts, fmt.Errorf("term end %s is before term start %s", scraper.FormatDate(end), scraper.FormatDate(start))
	}

	selected, err := f.selection(c)
	if err != nil {
		return opts, err
	}

	opts.TermStart = start
	opts.TermEnd = end
	opts.SubjectHint = firstNonEmpty(f.subjectHint, c.SubjectHint)
	opts.Selected = selected
	opts.StrictTerm = f.strictTerm || c.Term.Strict
	return opts, nil
}

func termDate(name, flag, fallback string) (time.Time, error) {
	text := firstNonEmpty(flag, fallback)
	if text == "" {
		return time.Time{}, nil
	}
	date, err := scraper.ParseDate(text)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", name, text, err)
	}
	return date, nil
}

// selection is the union of --selected, --selected-file and the config
// list, in that order.
func (f *extractFlags) selection(c config.Config) ([]string, error) {
	var ids []string
	ids = append(ids, splitList(f.selected)...)
	if f.selectedFile != "" {
		file, err := os.Open(f.selectedFile)
		if err != nil {
			return nil, fmt.Errorf("read selection file: %w", err)
		}
		defer file.Close()
		fromFile, err := readSelection(file)
		if err != nil {
			return nil, fmt.Errorf("read selection file: %w", err)
		}
		ids = append(ids, fromFile...)
	}
	ids = append(ids, c.Selected...)
	return dedupe(ids), nil
}

func splitList(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readSelection reads one identifier per line. Blank lines and anything
// after '#' are ignored.
func readSelection(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		ids = append(ids, splitList(line)...)
	}
	return ids, scanner.Err()
}

func dedupe(ids []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, id := range ids {
		key := strings.ToUpper(id)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// writeOutput exports records to the path named by -o and -f and returns
// that path.
func writeOutput(ctx context.Context, records []scraper.Record) (string, error) {
	format, err := export.ParseFormat(*outputFormat)
	if err != nil {
		return "", err
	}
	path := export.OutputPath(*outputBase, format)
	if err := export.WriteFile(ctx, path, format, records, export.Options{}); err != nil {
		return "", err
	}
	slog.Info("wrote timetable", "path", path, "records", len(records))
	return path, nil
}
