package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cuhk-timetable/scraper"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
)

// PeopleSoft element ids on the My Weekly Schedule page.
const (
	scheduleTableID = "WEEKLY_SCHED_HTMLAREA"
	scheduleFrameID = "main_target_win0"
	dateInputID     = "DERIVED_CLASS_S_START_DT"
	refreshButtonID = "DERIVED_CLASS_S_SSR_REFRESH_CAL$8$"
	nextWeekID      = "DERIVED_CLASS_S_SSR_NEXT_WEEK"
	timeStartID     = "DERIVED_CLASS_S_MEETING_TIME_START"
	timeEndID       = "DERIVED_CLASS_S_MEETING_TIME_END"

	displayStart = "06:00"
	displayEnd   = "23:00"

	MaxWeeks = 25
)

var ErrScheduleNotFound = errors.New("fetcher: could not find the WEEKLY_SCHED_HTMLAREA schedule, " +
	"make sure the browser shows the week calendar view of My Weekly Schedule")

const loginInstructions = `In the browser window:
  1. Log in to CUSIS (student ID, password, two-factor authentication)
  2. Go to Manage Classes -> My Weekly Schedule
  3. Check the calendar view of this week is shown
Do not close the browser window.`

func byID(id string) string {
	// ids such as REFRESH_CAL$8$ are not valid CSS identifiers
	return fmt.Sprintf("[id='%s']", id)
}

// weekNavigator is the part of the schedule page the week loop needs.
type weekNavigator interface {
	Content() (string, error)
	ShowWeekOf(ctx context.Context, date time.Time) error
	NextWeek(ctx context.Context) error
}

// schedulePage drives My Weekly Schedule in a playwright page. The schedule
// lives either in the page itself or in the main_target_win0 frame; the frame
// is looked up again after every postback.
type schedulePage struct {
	page    playwright.Page
	timeout time.Duration
}

func (p schedulePage) frame() (playwright.Frame, bool) {
	has := func(f playwright.Frame) bool {
		if f == nil {
			return false
		}
		n, err := f.Locator(byID(scheduleTableID)).Count()
		return err == nil && n > 0
	}
	if main := p.page.MainFrame(); has(main) {
		return main, true
	}
	if f := p.page.Frame(playwright.PageFrameOptions{Name: playwright.String(scheduleFrameID)}); has(f) {
		return f, true
	}
	for _, f := range p.page.Frames() {
		if has(f) {
			return f, true
		}
	}
	return nil, false
}

func (p schedulePage) waitForGrid(ctx context.Context) (playwright.Frame, error) {
	deadline := time.Now().Add(p.timeout)
	for {
		if f, ok := p.frame(); ok {
			return f, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrScheduleNotFound
		}
		if err := pause(ctx, 500*time.Millisecond); err != nil {
			return nil, err
		}
	}
}

// postback clicks a PeopleSoft button and waits for the grid to come back.
func (p schedulePage) postback(ctx context.Context, f playwright.Frame, buttonID string) error {
	if err := f.Locator(byID(buttonID)).Click(); err != nil {
		return fmt.Errorf("click %s: %w", buttonID, err)
	}
	if err := pause(ctx, 1500*time.Millisecond); err != nil {
		return err
	}
	_, err := p.waitForGrid(ctx)
	return err
}

func (p schedulePage) Content() (string, error) {
	f, ok := p.frame()
	if !ok {
		return "", ErrScheduleNotFound
	}
	return f.Content()
}

func (p schedulePage) ShowWeekOf(ctx context.Context, date time.Time) error {
	f, err := p.waitForGrid(ctx)
	if err != nil {
		return err
	}
	if err := f.Locator(byID(dateInputID)).Fill(date.Format("2006/01/02")); err != nil {
		return fmt.Errorf("set schedule date: %w", err)
	}
	return p.postback(ctx, f, refreshButtonID)
}

func (p schedulePage) NextWeek(ctx context.Context) error {
	f, err := p.waitForGrid(ctx)
	if err != nil {
		return err
	}
	return p.postback(ctx, f, nextWeekID)
}

// widenTimeRange makes the grid show 06:00-23:00. The portal defaults to
// 08:00-18:00, which hides evening classes.
func (p schedulePage) widenTimeRange(ctx context.Context) error {
	f, err := p.waitForGrid(ctx)
	if err != nil {
		return err
	}
	start := f.Locator(byID(timeStartID))
	end := f.Locator(byID(timeEndID))
	if n, err := start.Count(); err != nil || n == 0 {
		slog.Warn("time range controls not found, keeping the displayed range")
		return nil
	}

	changed := false
	for _, field := range []struct {
		loc  playwright.Locator
		want string
	}{{start, displayStart}, {end, displayEnd}} {
		current, err := field.loc.InputValue()
		if err != nil {
			return fmt.Errorf("read time range: %w", err)
		}
		if current == field.want {
			continue
		}
		if err := field.loc.Fill(field.want); err != nil {
			return fmt.Errorf("set time range: %w", err)
		}
		changed = true
	}
	if !changed {
		return nil
	}
	slog.Info("widened schedule time range", "start", displayStart, "end", displayEnd)
	return p.postback(ctx, f, refreshButtonID)
}

// ScheduleOptions carries the term bounds known before the fetch. Zero
// values are read from the page, then asked for.
type ScheduleOptions struct {
	TermStart time.Time
	TermEnd   time.Time
}

// FetchSchedule waits for the human to open My Weekly Schedule, then walks
// the term week by week and returns one single-date record per meeting.
func FetchSchedule(ctx context.Context, s *Session, prompt Prompter, portalURL string, opts ScheduleOptions) ([]scraper.Record, error) {
	ctx, span := tracer.Start(ctx, "FetchSchedule")
	defer span.End()

	if err := s.goTo(portalURL); err != nil {
		return nil, err
	}
	if err := prompt.Wait(ctx, loginInstructions); err != nil {
		return nil, err
	}

	page := schedulePage{page: s.page, timeout: s.timeout}
	if _, ok := page.frame(); !ok {
		if err := prompt.Wait(ctx, "The schedule was not detected. Open My Weekly Schedule and try again."); err != nil {
			return nil, err
		}
		if _, ok := page.frame(); !ok {
			return nil, ErrScheduleNotFound
		}
	}
	slog.Info("schedule detected")

	if err := page.widenTimeRange(ctx); err != nil {
		return nil, err
	}

	htmlText, err := page.Content()
	if err != nil {
		return nil, err
	}
	termStart, termEnd, err := resolveTerm(ctx, prompt, htmlText, opts)
	if err != nil {
		return nil, err
	}
	slog.Info("term range", "start", scraper.FormatDate(termStart), "end", scraper.FormatDate(termEnd))
	span.SetAttributes(
		attribute.String("term_start", scraper.FormatDate(termStart)),
		attribute.String("term_end", scraper.FormatDate(termEnd)),
	)

	records, err := walkWeeks(ctx, page, termStart, termEnd)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

// resolveTerm fills in missing term bounds from the page's no-meeting
// fields, then from the human.
func resolveTerm(ctx context.Context, prompt Prompter, htmlText string, opts ScheduleOptions) (time.Time, time.Time, error) {
	start, end := opts.TermStart, opts.TermEnd
	if start.IsZero() || end.IsZero() {
		info, err := scraper.InspectSchedulePage(htmlText)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if start.IsZero() {
			start = info.TermStart
		}
		if end.IsZero() {
			end = info.TermEnd
		}
	}

	ask := func(question string) (time.Time, error) {
		answer, err := prompt.Ask(ctx, question)
		if err != nil {
			return time.Time{}, err
		}
		return scraper.ParseDate(answer)
	}
	var err error
	if start.IsZero() {
		if start, err = ask("Term start date (YYYY-MM-DD)"); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end.IsZero() {
		if end, err = ask("Term end date (YYYY-MM-DD)"); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: term end %s is before term start %s",
			scraper.ErrTermDatesUndetermined, scraper.FormatDate(end), scraper.FormatDate(start))
	}
	return start, end, nil
}

// walkWeeks shows the week of termStart's Monday and steps forward until
// the displayed week passes termEnd or MaxWeeks weeks were read.
func walkWeeks(ctx context.Context, nav weekNavigator, termStart, termEnd time.Time) ([]scraper.Record, error) {
	current := scraper.MondayOf(termStart)
	if err := nav.ShowWeekOf(ctx, current); err != nil {
		return nil, err
	}

	var batches [][]scraper.Record
	for week := 1; week <= MaxWeeks && !current.After(termEnd); week++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		htmlText, err := nav.Content()
		if err != nil {
			return nil, err
		}
		info, err := scraper.InspectSchedulePage(htmlText)
		if err != nil {
			return nil, err
		}
		if !info.WeekStart.IsZero() {
			current = scraper.MondayOf(info.WeekStart)
		}

		records, err := scraper.ExtractWeeklyScheduleDated(ctx, htmlText, current.Year())
		if err != nil {
			return nil, err
		}
		batches = append(batches, records)
		slog.Info("week read", "week", week, "monday", scraper.FormatDate(current), "meetings", len(records))

		current = current.AddDate(0, 0, 7)
		if current.After(termEnd) || week == MaxWeeks {
			break
		}
		if err := nav.NextWeek(ctx); err != nil {
			return nil, err
		}
	}
	return scraper.MergeRecords(batches...), nil
}
