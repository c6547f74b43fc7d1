package scraper

import (
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"
)

// Selection is a list of class identifiers (class codes such as "ROSE5720"
// or class numbers such as "9578") restricting which records are kept.
type Selection struct {
	ids []string
}

func NewSelection(ids []string) Selection {
	var cleaned []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return Selection{ids: cleaned}
}

func (s Selection) Empty() bool {
	return len(s.ids) == 0
}

// Matches reports whether r is selected. An empty selection matches every
// record.
func (s Selection) Matches(r Record) bool {
	if s.Empty() {
		return true
	}
	for _, id := range s.ids {
		if matchesIdentifier(r, id) {
			return true
		}
	}
	return false
}

// matchesIdentifier: exact class number, or the identifier is the class
// code, a prefix of it or contained in it.
func matchesIdentifier(r Record, id string) bool {
	number := strings.TrimSpace(r.ClassNumber)
	if number != "" && number == id {
		return true
	}
	code := strings.TrimSpace(r.ClassCode)
	return code != "" && strings.Contains(code, id)
}

// warnUnmatched logs every identifier that selected nothing, with the
// closest class code seen on the page.
func (s Selection) warnUnmatched(kept []Record, codes []string) {
	for _, id := range s.ids {
		found := false
		for _, r := range kept {
			if matchesIdentifier(r, id) {
				found = true
				break
			}
		}
		if found {
			continue
		}
		if suggestion := closestCode(id, codes); suggestion != "" {
			slog.Warn("selected class not found on page", "selected", id, "did_you_mean", suggestion)
			continue
		}
		slog.Warn("selected class not found on page", "selected", id)
	}
}

const suggestionThreshold = 0.85

func closestCode(id string, codes []string) string {
	best, bestScore := "", 0.0
	for _, code := range codes {
		if code == "" {
			continue
		}
		score := matchr.JaroWinkler(strings.ToUpper(id), strings.ToUpper(code), false)
		if score > bestScore {
			best, bestScore = code, score
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}

type mergeKey struct {
	code   string
	number string
	date   string
	start  Clock
}

// MergeRecords concatenates record batches from several pages, keeping the
// first record for each (class code, class number, anchor date, start).
func MergeRecords(batches ...[]Record) []Record {
	var merged []Record
	seen := map[mergeKey]bool{}
	for _, batch := range batches {
		for _, r := range batch {
			key := mergeKey{code: r.ClassCode, number: r.ClassNumber, start: r.Start}
			if r.Anchor != nil {
				key.date = FormatDate(r.Anchor.Date())
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}
	return merged
}

// ClassListing is one line of the class list shown to help build a
// selection.
type ClassListing struct {
	ClassCode   string
	ClassNumber string
	Title       string
}

// ListClasses returns the distinct classes in records in first-seen order.
func ListClasses(records []Record) []ClassListing {
	var listings []ClassListing
	seen := map[[2]string]bool{}
	for _, r := range records {
		key := [2]string{r.ClassCode, r.ClassNumber}
		if seen[key] || (key[0] == "" && key[1] == "") {
			continue
		}
		seen[key] = true
		listings = append(listings, ClassListing{
			ClassCode:   strings.TrimSpace(r.ClassCode),
			ClassNumber: strings.TrimSpace(r.ClassNumber),
			Title:       strings.TrimSpace(r.Title),
		})
	}
	return listings
}
