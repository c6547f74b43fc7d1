package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

const teachingTableSelector = "table#gv_detail"

// headerVocabulary scores candidate tables when the results table has no
// known id.
var headerVocabulary = map[string]bool{
	"subject": true, "course": true, "catalog": true, "section": true, "class": true,
	"day": true, "time": true, "period": true, "room": true, "venue": true,
	"instructor": true, "teacher": true, "teaching": true,
}

// guessTimetableTable picks the results table: gv_detail when present,
// otherwise the table whose header row best matches the vocabulary among
// tables that have a period or time column.
func guessTimetableTable(doc *goquery.Document) *goquery.Selection {
	if table := doc.Find(teachingTableSelector).First(); table.Length() > 0 {
		return table
	}

	type candidate struct {
		score int
		table *goquery.Selection
	}
	var candidates []candidate
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		headers, _ := headerRow(table)
		if len(headers) == 0 {
			return
		}
		keys := map[string]bool{}
		for _, h := range headers {
			keys[strings.ToLower(h)] = true
		}
		if !keys["period"] && !keys["time"] {
			return
		}
		score := 0
		for key := range keys {
			if headerVocabulary[key] {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, candidate{score: score, table: table})
		}
	})
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates[0].table
}

// headerRow returns the texts of the first row of table that has cells and
// the index of that row.
func headerRow(table *goquery.Selection) ([]string, int) {
	var headers []string
	rowIdx := -1
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return true
		}
		cells.Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, joinedText(cell, ""))
		})
		rowIdx = i
		return false
	})
	return headers, rowIdx
}

// teachingRow is one results row after header-driven column mapping.
type teachingRow struct {
	classCode   string
	classNumber string
	subject     string
	catalog     string
	section     string
	title       string
	instructor  string
	day         string
	timeText    string
	room        string
}

func mapTeachingRow(headerKeys, cells []string) teachingRow {
	var r teachingRow
	for i, key := range headerKeys {
		val := cells[i]
		switch {
		case strings.Contains(key, "class code") && val != "":
			r.classCode = val
			if r.subject == "" && r.catalog == "" && r.section == "" {
				r.subject, r.catalog, r.section = SplitClassCode(val)
			}
		case strings.Contains(key, "class nbr") && val != "":
			r.classNumber = val
		case strings.Contains(key, "subject") && r.subject == "":
			r.subject = val
		case (strings.Contains(key, "title") || strings.Contains(key, "descr")) && r.title == "":
			r.title = val
		case (strings.Contains(key, "course") || strings.Contains(key, "catalog")) && r.catalog == "" && !strings.Contains(key, "class nbr"):
			r.catalog = val
		case (strings.Contains(key, "section") || strings.Contains(key, "class")) && r.section == "" && !strings.Contains(key, "class nbr"):
			r.section = val
		case (strings.Contains(key, "instructor") || strings.Contains(key, "teacher") || strings.Contains(key, "teaching staff")) && r.instructor == "":
			r.instructor = val
		case strings.Contains(key, "period"):
			r.timeText = val
			if words := strings.Fields(val); len(words) > 0 {
				r.day = words[0]
			}
		case strings.Contains(key, "day") && r.day == "":
			r.day = val
		case strings.Contains(key, "time") && r.timeText == "":
			r.timeText = val
		case (strings.Contains(key, "room") || strings.Contains(key, "venue") || strings.Contains(key, "location")) && r.room == "":
			r.room = val
		}
	}
	return r
}

// courseIdentity is what continuation rows inherit from the last row that
// printed a class code or class number.
type courseIdentity struct {
	classCode   string
	classNumber string
	subject     string
	catalog     string
	section     string
	title       string
	instructor  string
}

type teachingSlot struct {
	code   string
	number string
	day    time.Weekday
	start  Clock
	end    Clock
}

// ExtractTeachingTimetable reads a Teaching Timetable results page into
// weekly recurring records. Term bounds not supplied in opts are inferred
// from the Meeting Date column.
func ExtractTeachingTimetable(ctx context.Context, htmlText string, opts Options) ([]Record, error) {
	_, span := tracer.Start(ctx, "ExtractTeachingTimetable")
	defer span.End()

	doc, err := parseDocument(htmlText)
	if err != nil {
		return nil, fail(span, err)
	}
	table := guessTimetableTable(doc)
	if table == nil {
		return nil, fail(span, ErrTimetableNotFound)
	}
	headers, headerIdx := headerRow(table)
	if len(headers) == 0 {
		return nil, fail(span, ErrNoHeaderRow)
	}
	headerKeys := make([]string, len(headers))
	for i, h := range headers {
		headerKeys[i] = strings.ToLower(h)
	}

	termStart, termEnd := opts.TermStart, opts.TermEnd
	if termStart.IsZero() || termEnd.IsZero() {
		start, end, ok := meetingDateBounds(table, headerKeys, now(opts))
		if ok {
			if termStart.IsZero() {
				termStart = start
			}
			if termEnd.IsZero() {
				termEnd = end
			}
			slog.Debug("term dates inferred from meeting dates", "term_start", FormatDate(termStart), "term_end", FormatDate(termEnd))
		}
	}
	if termStart.IsZero() || termEnd.IsZero() {
		return nil, fail(span, fmt.Errorf("no usable Meeting Date column: %w", ErrTermDatesUndetermined))
	}
	termStart, termEnd, err = checkTerm(termStart, termEnd)
	if err != nil {
		return nil, fail(span, err)
	}

	selection := NewSelection(opts.Selected)
	var (
		records  []Record
		current  courseIdentity
		seen     = map[teachingSlot]bool{}
		allCodes []string
	)
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == headerIdx {
			return
		}
		tds := tr.ChildrenFiltered("td")
		if tds.Length() == 0 || tds.Length() != len(headerKeys) {
			return
		}
		cells := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, joinedText(td, ""))
		})
		row := mapTeachingRow(headerKeys, cells)

		if row.classCode != "" || row.classNumber != "" {
			current.classCode = row.classCode
			current.classNumber = row.classNumber
			if row.subject != "" || row.catalog != "" || row.section != "" {
				current.subject, current.catalog, current.section = row.subject, row.catalog, row.section
			}
			if row.title != "" {
				current.title = row.title
			}
			if row.instructor != "" {
				current.instructor = row.instructor
			}
			allCodes = append(allCodes, current.classCode)
		}

		if row.day == "" || row.timeText == "" {
			return
		}
		day, ok := NormalizeDay(row.day)
		if !ok {
			return
		}
		start, end, ok := ParseTimeRange(row.timeText)
		if !ok || !start.Before(end) {
			return
		}

		slot := teachingSlot{code: current.classCode, number: current.classNumber, day: day, start: start, end: end}
		if seen[slot] {
			return
		}
		seen[slot] = true

		record := Record{
			Subject:       firstNonEmpty(row.subject, current.subject, opts.SubjectHint),
			CatalogNumber: firstNonEmpty(row.catalog, current.catalog),
			Section:       firstNonEmpty(row.section, current.section),
			ClassCode:     current.classCode,
			ClassNumber:   current.classNumber,
			Instructors:   firstNonEmpty(row.instructor, current.instructor),
			Location:      row.room,
			Anchor: WeeklyRecurring{
				FirstDate: FirstDateForWeekday(termStart, day),
				TermEnd:   termEnd,
			},
			Start: start,
			End:   end,
		}
		record.Title = firstNonEmpty(row.title, current.title, record.CatalogNumber)

		if !selection.Matches(record) {
			return
		}
		records = append(records, record)
	})

	selection.warnUnmatched(records, allCodes)
	if len(records) == 0 {
		return nil, fail(span, ErrNoClassRows)
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
