package export

import (
	"fmt"
	"io"
	"strings"

	"cuhk-timetable/scraper"
	"cuhk-timetable/timezone"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const (
	productID    = "-//CUHK Timetable Export//EN"
	calendarName = "CUHK Timetable"
	uidDomain    = "cuhk-timetable-export"

	icsLocalLayout = "20060102T150405"
	icsDateLayout  = "20060102"
)

var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(uidDomain))

// EventUID is stable for a given summary, anchor date and start time, so
// re-exporting the same timetable updates events instead of duplicating
// them.
func EventUID(r scraper.Record) string {
	date := ""
	if r.Anchor != nil {
		date = scraper.FormatDate(r.Anchor.Date())
	}
	name := strings.Join([]string{r.Summary(), date, r.Start.String()}, "|")
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@" + uidDomain
}

// Calendar builds the VCALENDAR for records. Records without an anchor are
// skipped.
func Calendar(records []scraper.Record, opts Options) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetXWRCalName(calendarName)
	cal.SetXWRTimezone(timezone.Name)

	stamp := opts.now().UTC()
	for _, r := range records {
		if r.Anchor == nil {
			continue
		}
		date := r.Anchor.Date()

		event := cal.AddEvent(EventUID(r))
		event.SetSummary(r.Summary())
		event.SetDescription(fmt.Sprintf("Instructors: %s\nCourse: %s", r.Instructors, r.Title))
		event.SetLocation(r.Location)
		event.SetProperty(ics.ComponentPropertyDtStart, r.Start.On(date).Format(icsLocalLayout), ics.WithTZID(timezone.Name))
		event.SetProperty(ics.ComponentPropertyDtEnd, r.End.On(date).Format(icsLocalLayout), ics.WithTZID(timezone.Name))
		event.SetDtStampTime(stamp)

		if weekly, ok := r.Anchor.(scraper.WeeklyRecurring); ok {
			event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;UNTIL=%sT235959Z", weekly.TermEnd.Format(icsDateLayout)))
		}
	}
	return cal
}

func writeICS(w io.Writer, records []scraper.Record, opts Options) error {
	_, err := io.WriteString(w, Calendar(records, opts).Serialize())
	return err
}
