package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	courseNameIDRegex = regexp.MustCompile(`(?i)CLASSNAME|CLS_LINK|CLASS_NAME`)
	rowSuffixRegex    = regexp.MustCompile(`\$(\d+)$`)
	titleSplitRegex   = regexp.MustCompile(`\s*[-–]\s*`)
)

// companion field id patterns, matched as (?:pattern).*\$<row>$
const (
	timeFieldPattern       = `CLASS_TIME|MTG_TIME|MEETING_TIME`
	dayFieldPattern        = `MTG_PAT|CLASS_DAY|DAY_OF_WEEK|MEETING_DAY`
	roomFieldPattern       = `ROOM|FACILITY|LOCATION|BLDG`
	instructorFieldPattern = `INSTR|INSTRUCTOR|TEACHER`
)

type idField struct {
	id   string
	text string
}

// indexedFieldBlocks handles pages that lay a class out as separate elements
// whose ids share a "$n" row suffix, e.g. CLASSNAME$0, MTG_TIME$0, ROOM$0.
func indexedFieldBlocks(doc *goquery.Document) []block {
	var fields []idField
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		fields = append(fields, idField{id: id, text: joinedText(s, "")})
	})

	find := func(pattern, row string) string {
		re := regexp.MustCompile(`(?i)(?:` + pattern + `).*\$` + regexp.QuoteMeta(row) + `$`)
		for _, f := range fields {
			if re.MatchString(f.id) {
				return f.text
			}
		}
		return ""
	}

	var blocks []block
	for _, f := range fields {
		if !courseNameIDRegex.MatchString(f.id) {
			continue
		}
		m := rowSuffixRegex.FindStringSubmatch(f.id)
		if m == nil || f.text == "" {
			continue
		}
		row := m[1]

		timeText := find(timeFieldPattern, row)
		days := ParseDayPattern(find(dayFieldPattern, row))
		start, end, ok := ParseTimeRange(timeText)
		if len(days) == 0 || !ok {
			continue
		}

		parts := titleSplitRegex.Split(f.text, 2)
		code := strings.ReplaceAll(strings.TrimSpace(parts[0]), " ", "")
		title := ""
		if len(parts) > 1 {
			title = strings.TrimSpace(parts[1])
		}
		subject, catalog, section := SplitClassCode(code)
		room := find(roomFieldPattern, row)
		instructor := find(instructorFieldPattern, row)

		for _, day := range days {
			blocks = append(blocks, block{
				subject:   subject,
				catalog:   catalog,
				section:   section,
				classCode: code,
				title:     title,
				instr:     instructor,
				location:  room,
				timeText:  timeText,
				start:     start,
				end:       end,
				hasDay:    true,
				day:       day,
			})
		}
	}
	return blocks
}
