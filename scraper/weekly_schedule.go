package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cuhk-timetable/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("cuhk-timetable/scraper")

const scheduleTableSelector = "table#WEEKLY_SCHED_HTMLAREA"

// scheduleStrategy turns a schedule page into raw blocks. Strategies are
// tried in order and the first one returning blocks wins.
type scheduleStrategy struct {
	name string
	run  func(doc *goquery.Document) []block
}

var scheduleStrategies = []scheduleStrategy{
	{name: "weekly grid", run: gridBlocks},
	{name: "indexed fields", run: indexedFieldBlocks},
}

func parseDocument(htmlText string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// ExtractWeeklySchedule reads a "My Weekly Schedule" page into weekly
// recurring records anchored on the first matching day of the term.
func ExtractWeeklySchedule(ctx context.Context, htmlText string, opts Options) ([]Record, error) {
	_, span := tracer.Start(ctx, "ExtractWeeklySchedule")
	defer span.End()

	doc, err := parseDocument(htmlText)
	if err != nil {
		return nil, fail(span, err)
	}

	var blocks []block
	for _, strategy := range scheduleStrategies {
		blocks = strategy.run(doc)
		if len(blocks) > 0 {
			slog.Debug("schedule strategy matched", "strategy", strategy.name, "blocks", len(blocks))
			span.SetAttributes(attribute.String("strategy", strategy.name))
			break
		}
	}
	if len(blocks) == 0 {
		return nil, fail(span, ErrNoCourseData)
	}

	termStart, termEnd, err := scheduleTerm(doc, opts)
	if err != nil {
		return nil, fail(span, err)
	}

	records := weeklyRecords(blocks, termStart, termEnd)
	if len(records) == 0 {
		return nil, fail(span, ErrNoValidMeetings)
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

type weeklySlot struct {
	code  string
	day   time.Weekday
	start Clock
	end   Clock
}

func weeklyRecords(blocks []block, termStart, termEnd time.Time) []Record {
	var records []Record
	seen := map[weeklySlot]bool{}
	for _, b := range blocks {
		if !b.hasDay {
			slog.Debug("skipping block without a day column", "course", b.classCode)
			continue
		}
		if !b.start.Before(b.end) {
			slog.Debug("skipping block with an empty time range", "course", b.classCode, "time", b.timeText)
			continue
		}
		slot := weeklySlot{code: b.classCode, day: b.day, start: b.start, end: b.end}
		if seen[slot] {
			continue
		}
		seen[slot] = true

		records = append(records, b.record(WeeklyRecurring{
			FirstDate: FirstDateForWeekday(termStart, b.day),
			TermEnd:   termEnd,
		}))
	}
	return records
}

func (b block) record(anchor Anchor) Record {
	return Record{
		Subject:       b.subject,
		CatalogNumber: b.catalog,
		Section:       b.section,
		ClassCode:     b.classCode,
		Title:         b.title,
		Instructors:   b.instr,
		Location:      b.location,
		Anchor:        anchor,
		Start:         b.start,
		End:           b.end,
	}
}

// gridBlocks reads the coloured course cells of the weekly grid and attaches
// the weekday of the column each cell sits in.
func gridBlocks(doc *goquery.Document) []block {
	table := doc.Find(scheduleTableSelector).First()
	if table.Length() == 0 {
		return nil
	}

	dayColumns := map[int]time.Weekday{}
	table.Find("tr").First().ChildrenFiltered("th").Each(func(i int, th *goquery.Selection) {
		words := strings.Fields(joinedText(th, " "))
		if len(words) == 0 {
			return
		}
		if day, ok := NormalizeDay(words[0]); ok {
			dayColumns[i] = day
		}
	})
	if len(dayColumns) == 0 {
		return nil
	}

	grid := newGridIndex(table)
	var blocks []block
	eachCourseCell(table, func(cell *goquery.Selection, b block) {
		if col, ok := grid.column(cell); ok {
			b.day, b.hasDay = dayColumns[col]
		}
		blocks = append(blocks, b)
	})
	return blocks
}

// eachCourseCell calls fn for every coloured cell of the grid that parses as
// a course block.
func eachCourseCell(table *goquery.Selection, fn func(cell *goquery.Selection, b block)) {
	table.Find("td").Each(func(_ int, cell *goquery.Selection) {
		if !strings.Contains(cell.AttrOr("style", ""), "background-color") {
			return
		}
		b, ok := parseGridCell(cell)
		if !ok {
			return
		}
		fn(cell, b)
	})
}

// parseGridCell reads a block such as
//
//	ROSE 5770 - -
//	Lecture
//	18:30 - 21:15
//	Li Koon Chun Hall LT1
func parseGridCell(cell *goquery.Selection) (block, bool) {
	span := cell.Find("span").First()
	if span.Length() == 0 {
		return block{}, false
	}
	lines := textPieces(span)
	if len(lines) < 3 {
		return block{}, false
	}

	classType := lines[1]
	timeLine := ""
	var locationLines []string
	for _, line := range lines[1:] {
		if _, _, ok := ParseTimeRange(line); ok {
			timeLine = line
		} else if line != classType {
			locationLines = append(locationLines, line)
		}
	}
	if timeLine == "" {
		timeLine = lines[2]
	}
	start, end, ok := ParseTimeRange(timeLine)
	if !ok {
		return block{}, false
	}

	subject, catalog, section := parseCourseLine(lines[0])
	location := strings.Join(locationLines, " ")
	if location == "" && len(lines) > 3 {
		location = lines[3]
	}
	return block{
		subject:   subject,
		catalog:   catalog,
		section:   section,
		classCode: subject + catalog,
		title:     classType,
		location:  location,
		timeText:  timeLine,
		start:     start,
		end:       end,
	}, true
}

var headerDateRegex = regexp.MustCompile(`([A-Za-z]+)\s+(\d{1,2})$`)

// headerDates maps grid columns to the calendar dates printed in the header
// ("Monday Feb 23"). The first dated column takes yearHint, or the week
// label's start year when yearHint is 0, or the current year. A month that
// goes backwards across the columns (Dec to Jan) moves to the next year.
func headerDates(doc *goquery.Document, table *goquery.Selection, yearHint int) map[int]time.Time {
	year := yearHint
	if year == 0 {
		if weekStart, _, ok := weekLabel(doc); ok {
			year = weekStart.Year()
		}
	}
	if year == 0 {
		year = timezone.Now().Year()
	}

	dates := map[int]time.Time{}
	var previous time.Month
	table.Find("tr").First().ChildrenFiltered("th").Each(func(i int, th *goquery.Selection) {
		m := headerDateRegex.FindStringSubmatch(strings.TrimSpace(joinedText(th, " ")))
		if m == nil {
			return
		}
		month, ok := parseMonth(m[1])
		if !ok {
			return
		}
		if previous != 0 && month < previous {
			year++
		}
		previous = month
		day, _ := strconv.Atoi(m[2])
		if d, ok := validDate(year, month, day); ok {
			dates[i] = d
		}
	})
	return dates
}

type datedSlot struct {
	code  string
	date  time.Time
	start Clock
	end   Clock
}

// ExtractWeeklyScheduleDated reads one displayed week of the schedule grid
// into single-date records. A page without the grid or without dated
// headers yields no records and no error.
func ExtractWeeklyScheduleDated(ctx context.Context, htmlText string, yearHint int) ([]Record, error) {
	_, span := tracer.Start(ctx, "ExtractWeeklyScheduleDated")
	defer span.End()

	doc, err := parseDocument(htmlText)
	if err != nil {
		return nil, fail(span, err)
	}
	table := doc.Find(scheduleTableSelector).First()
	if table.Length() == 0 {
		return nil, nil
	}
	columnDates := headerDates(doc, table, yearHint)
	if len(columnDates) == 0 {
		return nil, nil
	}

	grid := newGridIndex(table)
	var records []Record
	seen := map[datedSlot]bool{}
	eachCourseCell(table, func(cell *goquery.Selection, b block) {
		col, ok := grid.column(cell)
		if !ok {
			return
		}
		date, ok := columnDates[col]
		if !ok || !b.start.Before(b.end) {
			return
		}
		slot := datedSlot{code: b.classCode, date: date, start: b.start, end: b.end}
		if seen[slot] {
			return
		}
		seen[slot] = true
		records = append(records, b.record(SingleDate{On: date}))
	})
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

// InspectSchedulePage reports whether the page shows the weekly grid, which
// week it displays and the term bounds it states, if any.
func InspectSchedulePage(htmlText string) (PageInfo, error) {
	doc, err := parseDocument(htmlText)
	if err != nil {
		return PageInfo{}, err
	}
	info := PageInfo{HasGrid: doc.Find(scheduleTableSelector).Length() > 0}
	info.WeekStart, info.WeekEnd, _ = weekLabel(doc)
	info.TermStart, info.TermEnd = noMeetingBounds(doc)
	return info, nil
}
