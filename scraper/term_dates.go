package scraper

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cuhk-timetable/timezone"

	"github.com/PuerkitoBio/goquery"
)

var (
	noMeetingStartRegex = regexp.MustCompile(`(?i)STDNT_WK_NO_MTG_START_DT\$\d+`)
	noMeetingEndRegex   = regexp.MustCompile(`(?i)STDNT_WK_NO_MTG_END_DT\$\d+`)
)

// noMeetingBounds reads the "classes without a regular meeting pattern"
// fields, which carry explicit start and end dates. It returns the earliest
// start and the latest end; either may be zero.
func noMeetingBounds(doc *goquery.Document) (start, end time.Time) {
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		switch {
		case noMeetingStartRegex.MatchString(id):
			if d, ok := parseCUSISDate(joinedText(s, "")); ok && (start.IsZero() || d.Before(start)) {
				start = d
			}
		case noMeetingEndRegex.MatchString(id):
			if d, ok := parseCUSISDate(joinedText(s, "")); ok && (end.IsZero() || d.After(end)) {
				end = d
			}
		}
	})
	return start, end
}

// weekLabel finds the "Week of ..." group box label of a schedule page.
func weekLabel(doc *goquery.Document) (start, end time.Time, ok bool) {
	doc.Find(".PSGROUPBOXLABEL").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		start, end, ok = parseWeekLabel(joinedText(s, ""))
		return !ok
	})
	return start, end, ok
}

// guessTerm is the last-resort term shape: autumn term when the reference
// month is August or later, spring term otherwise. It is not derived from any
// published academic calendar.
func guessTerm(ref time.Time) (start, end time.Time) {
	year := ref.Year()
	if ref.Month() >= time.August {
		return timezone.Date(year, time.September, 2), timezone.Date(year, time.December, 5)
	}
	return timezone.Date(year, time.January, 13), timezone.Date(year, time.May, 10)
}

// scheduleTerm resolves the term bounds for a weekly schedule page. Caller
// values win; then the no-meeting fields; then, when both bounds are still
// unknown, the guess anchored on the week label (or today).
func scheduleTerm(doc *goquery.Document, opts Options) (start, end time.Time, err error) {
	start, end = opts.TermStart, opts.TermEnd
	if start.IsZero() || end.IsZero() {
		s, e := noMeetingBounds(doc)
		if start.IsZero() {
			start = s
		}
		if end.IsZero() {
			end = e
		}
	}

	if start.IsZero() && end.IsZero() && !opts.StrictTerm {
		ref := now(opts)
		if weekStart, _, ok := weekLabel(doc); ok {
			ref = weekStart
		}
		start, end = guessTerm(ref)
		slog.Warn("term dates not found in page, guessing from the calendar",
			"term_start", FormatDate(start), "term_end", FormatDate(end))
	}

	return checkTerm(start, end)
}

func checkTerm(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, ErrTermDatesUndetermined
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: term end %s is before term start %s",
			ErrTermDatesUndetermined, FormatDate(end), FormatDate(start))
	}
	return start, end, nil
}

var (
	fullMeetingDateRegex  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	shortMeetingDateRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
)

// parseMeetingDateToken parses a day/month[/year] token.
func parseMeetingDateToken(token string, yearHint int) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if m := fullMeetingDateRegex.FindStringSubmatch(token); m != nil {
		return dateFromParts(m[3], m[2], m[1])
	}
	if m := shortMeetingDateRegex.FindStringSubmatch(token); m != nil {
		return dateFromParts(strconv.Itoa(yearHint), m[2], m[1])
	}
	return time.Time{}, false
}

// parseMeetingDates parses a Meeting Date cell: either "6/1, 13/1, 20/1" or
// "05/01/2026 - 09/02/2026".
func parseMeetingDates(text string, yearHint int) []time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	tokens := strings.Split(text, ",")
	if strings.Contains(text, " - ") {
		tokens = strings.SplitN(text, " - ", 2)
	}
	var dates []time.Time
	for _, token := range tokens {
		if d, ok := parseMeetingDateToken(token, yearHint); ok {
			dates = append(dates, d)
		}
	}
	return dates
}

// meetingDateBounds scans the Meeting Date column of a teaching timetable
// and returns the earliest and latest dates found.
func meetingDateBounds(table *goquery.Selection, headerKeys []string, ref time.Time) (start, end time.Time, ok bool) {
	col := -1
	for i, key := range headerKeys {
		if strings.Contains(key, "meeting") && strings.Contains(key, "date") {
			col = i
			break
		}
	}
	if col < 0 {
		return time.Time{}, time.Time{}, false
	}

	var texts []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() <= col {
			return
		}
		texts = append(texts, joinedText(cells.Eq(col), ""))
	})

	yearHint := 0
	for _, text := range texts {
		if !strings.Contains(text, " - ") {
			continue
		}
		for _, part := range strings.SplitN(text, " - ", 2) {
			if m := fullMeetingDateRegex.FindStringSubmatch(strings.TrimSpace(part)); m != nil {
				yearHint, _ = strconv.Atoi(m[3])
				break
			}
		}
		if yearHint != 0 {
			break
		}
	}
	if yearHint == 0 {
		yearHint = ref.Year()
	}

	for _, text := range texts {
		for _, d := range parseMeetingDates(text, yearHint) {
			if start.IsZero() || d.Before(start) {
				start = d
			}
			if end.IsZero() || d.After(end) {
				end = d
			}
		}
	}
	return start, end, !start.IsZero()
}
