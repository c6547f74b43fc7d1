package scraper

import (
	"regexp"
	"strings"
)

var (
	classCodeRegex  = regexp.MustCompile(`^([A-Z]{2,6})(\d{3,4})(.*)$`)
	courseLineRegex = regexp.MustCompile(`^([A-Z]{2,6})\s*(\d{3,4})\s*[-–]?\s*(.*)$`)
)

// SplitClassCode splits a concatenated class code such as "ROSE5720-" or
// "MATH1010A" into subject, catalog number and section. When the code does
// not start with letters followed by digits the whole string is returned as
// the catalog number and the subject is empty.
func SplitClassCode(code string) (subject, catalog, section string) {
	code = strings.TrimSpace(code)
	m := classCodeRegex.FindStringSubmatch(code)
	if m == nil {
		return "", code, ""
	}
	section = strings.TrimSpace(m[3])
	if section != "-" {
		section = strings.TrimSpace(strings.TrimRight(section, "-"))
	}
	return m[1], m[2], section
}

// parseCourseLine reads the first line of a grid block, e.g.
// "ROSE 5770 - -" or "CSCI 3100 - A". A placeholder dash section becomes "".
func parseCourseLine(line string) (subject, catalog, section string) {
	line = strings.TrimSpace(line)
	m := courseLineRegex.FindStringSubmatch(line)
	if m == nil {
		subject, catalog, section = SplitClassCode(strings.ReplaceAll(line, " ", ""))
	} else {
		subject, catalog = m[1], m[2]
		section = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[3]), "-"))
	}
	if section == "-" {
		section = ""
	}
	return subject, catalog, section
}

var subjectPrefixRegex = regexp.MustCompile(`^([A-Za-z]{2,6})`)

// InferSubjects derives the search subjects for a list of course
// identifiers: the leading letters of each, upper-cased, de-duplicated in
// first-seen order. Bare class numbers contribute nothing.
func InferSubjects(courses []string) []string {
	var subjects []string
	seen := map[string]bool{}
	for _, course := range courses {
		course = strings.TrimSpace(course)
		m := subjectPrefixRegex.FindStringSubmatch(course)
		if m == nil {
			continue
		}
		// "ROSE5720" is fine, "ROSEMARY" is not a course code
		rest := course[len(m[1]):]
		if rest != "" && (rest[0] < '0' || rest[0] > '9') && rest[0] != ' ' {
			continue
		}
		subject := strings.ToUpper(m[1])
		if seen[subject] {
			continue
		}
		seen[subject] = true
		subjects = append(subjects, subject)
	}
	return subjects
}
