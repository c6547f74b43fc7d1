package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
)

const (
	subjectSelectID = "ddl_subject"
	resultsTableID  = "gv_detail"
)

var ErrNotResultsPage = errors.New("fetcher: the current page is not a timetable results page, " +
	"enter the verification code and click Search before continuing")

func teachingInstructions(subject string) string {
	return fmt.Sprintf(`In the browser window (subject %s):
  1. Check the Course Subject is %s
  2. Enter the verification code
  3. Click Search and wait for the results table to load`, subject, subject)
}

// isResultsPage reports whether the HTML holds the Teaching Timetable
// results table.
func isResultsPage(htmlText string) bool {
	return strings.Contains(htmlText, resultsTableID)
}

// FetchTeaching runs one search per subject and returns the HTML of every
// results page, in subject order. The subject dropdown is pre-filled; the
// human solves the captcha and starts the search.
func FetchTeaching(ctx context.Context, s *Session, prompt Prompter, url string, subjects []string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "FetchTeaching")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("subjects", subjects))

	var pages []string
	for _, subject := range subjects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.goTo(url); err != nil {
			return nil, err
		}

		if _, err := s.page.Locator("#"+subjectSelectID).SelectOption(playwright.SelectOptionValues{
			Values: playwright.StringSlice(subject),
		}); err != nil {
			slog.Warn("could not pre-select the subject, select it by hand", "subject", subject, "err", err)
		}

		if err := prompt.Wait(ctx, teachingInstructions(subject)); err != nil {
			return nil, err
		}

		htmlText, err := s.page.Content()
		if err != nil {
			return nil, fmt.Errorf("could not read results page: %w", err)
		}
		if !isResultsPage(htmlText) {
			return nil, fmt.Errorf("subject %s: %w", subject, ErrNotResultsPage)
		}
		slog.Info("teaching timetable page captured", "subject", subject, "bytes", len(htmlText))
		pages = append(pages, htmlText)
	}
	return pages, nil
}
