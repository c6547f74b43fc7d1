package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type dayToken struct {
	token string
	day   time.Weekday
}

// dayTokens is ordered so that prefix matching is deterministic.
var dayTokens = []dayToken{
	{"mo", time.Monday}, {"mon", time.Monday}, {"monday", time.Monday},
	{"tu", time.Tuesday}, {"tue", time.Tuesday}, {"tues", time.Tuesday}, {"tuesday", time.Tuesday},
	{"we", time.Wednesday}, {"wed", time.Wednesday}, {"weds", time.Wednesday}, {"wednesday", time.Wednesday},
	{"th", time.Thursday}, {"thu", time.Thursday}, {"thur", time.Thursday}, {"thurs", time.Thursday}, {"thursday", time.Thursday},
	{"fr", time.Friday}, {"fri", time.Friday}, {"friday", time.Friday},
	{"sa", time.Saturday}, {"sat", time.Saturday}, {"saturday", time.Saturday},
	{"su", time.Sunday}, {"sun", time.Sunday}, {"sunday", time.Sunday},
}

var dayCodes = map[time.Weekday]string{
	time.Monday:    "Mon",
	time.Tuesday:   "Tue",
	time.Wednesday: "Wed",
	time.Thursday:  "Thu",
	time.Friday:    "Fri",
	time.Saturday:  "Sat",
	time.Sunday:    "Sun",
}

// DayCode renders a weekday as its 3-letter code, e.g. "Mon".
func DayCode(day time.Weekday) string {
	return dayCodes[day]
}

// NormalizeDay maps a free-text day token ("Mo", "TUE", "Thursday") to a
// weekday. An exact token match wins over a prefix match.
func NormalizeDay(text string) (time.Weekday, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return 0, false
	}
	for _, dt := range dayTokens {
		if dt.token == t {
			return dt.day, true
		}
	}
	for _, dt := range dayTokens {
		if strings.HasPrefix(t, dt.token) {
			return dt.day, true
		}
	}
	return 0, false
}

var timeRangeRegex = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(AM|PM|am|pm)?\s*[-–]\s*(\d{1,2}):(\d{2})\s*(AM|PM|am|pm)?`)

// ParseTimeRange finds the first "H:MM[AM|PM] - H:MM[AM|PM]" range in text
// and converts both ends to 24-hour clocks.
func ParseTimeRange(text string) (Clock, Clock, bool) {
	m := timeRangeRegex.FindStringSubmatch(normalizeSpace(text))
	if m == nil {
		return Clock{}, Clock{}, false
	}
	start, ok := to24Hour(m[1], m[2], m[3])
	if !ok {
		return Clock{}, Clock{}, false
	}
	end, ok := to24Hour(m[4], m[5], m[6])
	if !ok {
		return Clock{}, Clock{}, false
	}
	return start, end, true
}

func to24Hour(hourText, minuteText, marker string) (Clock, bool) {
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return Clock{}, false
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil {
		return Clock{}, false
	}
	switch strings.ToUpper(marker) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return Clock{}, false
	}
	return Clock{Hour: hour, Minute: minute}, true
}

var (
	tightDayPatternRegex = regexp.MustCompile(`^[A-Z][a-z]([A-Z][a-z])*$`)
	dayPatternSplitRegex = regexp.MustCompile(`[,\s]+`)
)

// ParseDayPattern decodes "MoWeFr", "TuTh" or "Mon, Wed" into weekdays in
// order of first appearance.
func ParseDayPattern(text string) []time.Weekday {
	text = strings.TrimSpace(normalizeSpace(text))
	if text == "" {
		return nil
	}

	var days []time.Weekday
	add := func(token string) {
		day, ok := NormalizeDay(token)
		if !ok {
			return
		}
		for _, d := range days {
			if d == day {
				return
			}
		}
		days = append(days, day)
	}

	if tightDayPatternRegex.MatchString(text) {
		for i := 0; i+2 <= len(text); i += 2 {
			add(text[i : i+2])
		}
		if len(days) > 0 {
			return days
		}
	}
	for _, token := range dayPatternSplitRegex.Split(text, -1) {
		add(token)
	}
	return days
}

var weekLabelRegex = regexp.MustCompile(`Week of\s*(\d{4})/(\d{1,2})/(\d{1,2})\s*[-–]\s*(\d{4})/(\d{1,2})/(\d{1,2})`)

// parseWeekLabel reads a "Week of 2026/2/23 - 2026/3/1" banner.
func parseWeekLabel(text string) (time.Time, time.Time, bool) {
	m := weekLabelRegex.FindStringSubmatch(normalizeSpace(text))
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	start, ok := dateFromParts(m[1], m[2], m[3])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := dateFromParts(m[4], m[5], m[6])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
