package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cuhk-timetable/timezone"
)

const isoDateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as supplied on the command line.
func ParseDate(text string) (time.Time, error) {
	t, err := time.ParseInLocation(isoDateLayout, strings.TrimSpace(text), timezone.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", text, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(isoDateLayout)
}

// FirstDateForWeekday returns the earliest date on or after start that falls
// on weekday.
func FirstDateForWeekday(start time.Time, weekday time.Weekday) time.Time {
	offset := (int(weekday) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}

// MondayOf returns the Monday of the week containing t.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// validDate builds a calendar date, rejecting values time.Date would
// normalise (Feb 30, month 13).
func validDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := timezone.Date(year, month, day)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func dateFromParts(yearText, monthText, dayText string) (time.Time, bool) {
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(monthText)
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil {
		return time.Time{}, false
	}
	return validDate(year, time.Month(month), day)
}

var cusisDateRegex = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)

// parseCUSISDate parses the portal's YYYY/M/D date format.
func parseCUSISDate(text string) (time.Time, bool) {
	m := cusisDateRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}
	return dateFromParts(m[1], m[2], m[3])
}

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func parseMonth(text string) (time.Month, bool) {
	text = strings.ToLower(text)
	if len(text) > 3 {
		text = text[:3]
	}
	month, ok := monthAbbrev[text]
	return month, ok
}

func now(opts Options) time.Time {
	if opts.Now != nil {
		return opts.Now().In(timezone.Location)
	}
	return timezone.Now()
}
