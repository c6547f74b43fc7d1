package scraper

import (
	"context"
	"strings"
	"testing"
	"time"

	"cuhk-timetable/timezone"

	"github.com/stretchr/testify/require"
)

type teachingRowFixture struct {
	code, nbr, title, period, room, dates, instructor string
}

func teachingPage(rows ...teachingRowFixture) string {
	var b strings.Builder
	b.WriteString(`<html><body><table id="gv_detail" class="gridview">
	<tr><th>Class Code</th><th>Class Nbr</th><th>Course Title</th><th>Period</th><th>Room</th><th>Meeting Date</th><th>Instructor</th></tr>`)
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, v := range []string{r.code, r.nbr, r.title, r.period, r.room, r.dates, r.instructor} {
			b.WriteString("<td>" + v + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString(`<tr><td colspan="7">1 2 3</td></tr></table></body></html>`)
	return b.String()
}

var teachingFixture = []teachingRowFixture{
	{"ROSE5720-", "9578", "Robotics Systems", "Mon 18:30 - 21:15", "LSK LT2", "12/01/2026 - 13/04/2026", "Prof. Chan"},
	{"", "", "", "Thu 14:30 - 15:15", "ERB 404", "15/01/2026 - 16/04/2026", ""},
	{"ROSE5770-", "9580", "Motion Planning", "Wed 18:30 - 21:15", "Li Koon Chun Hall LT1", "14/01/2026 - 15/04/2026", "Prof. Li"},
	{"ROSE5770-", "9580", "Motion Planning", "Wed 18:30 - 21:15", "Li Koon Chun Hall LT1", "14/01/2026 - 15/04/2026", "Prof. Li"},
	{"CSCI3100A", "5001", "Software Engineering", "Tue 10:30AM - 11:15AM", "ERB 407", "13/01/2026 - 14/04/2026", "Prof. Lyu"},
}

func TestExtractTeachingTimetable(t *testing.T) {
	records, err := ExtractTeachingTimetable(context.Background(), teachingPage(teachingFixture...), Options{})
	require.NoError(t, err)
	require.Len(t, records, 4)

	first := records[0]
	require.Equal(t, "ROSE", first.Subject)
	require.Equal(t, "5720", first.CatalogNumber)
	require.Equal(t, "-", first.Section)
	require.Equal(t, "ROSE5720", first.Summary())
	require.Equal(t, "ROSE5720-", first.ClassCode)
	require.Equal(t, "9578", first.ClassNumber)
	require.Equal(t, "Robotics Systems", first.Title)
	require.Equal(t, "Prof. Chan", first.Instructors)
	require.Equal(t, "LSK LT2", first.Location)
	require.Equal(t, WeeklyRecurring{
		FirstDate: timezone.Date(2026, time.January, 12),
		TermEnd:   timezone.Date(2026, time.April, 16),
	}, first.Anchor)

	// continuation row inherits the course from the row above
	cont := records[1]
	require.Equal(t, "ROSE5720-", cont.ClassCode)
	require.Equal(t, "9578", cont.ClassNumber)
	require.Equal(t, "Robotics Systems", cont.Title)
	require.Equal(t, "Prof. Chan", cont.Instructors)
	require.Equal(t, "ERB 404", cont.Location)
	require.Equal(t, "Thu", cont.Day())
	require.Equal(t, "2026-01-15", FormatDate(cont.Anchor.Date()))
	require.Equal(t, "14:30", cont.Start.String())

	require.Equal(t, "ROSE5770-", records[2].ClassCode)
	require.Equal(t, "2026-01-14", FormatDate(records[2].Anchor.Date()))

	csci := records[3]
	require.Equal(t, "A", csci.Section)
	require.Equal(t, "CSCI3100-A", csci.Summary())
	require.Equal(t, "10:30", csci.Start.String())
	require.Equal(t, "11:15", csci.End.String())
	require.Equal(t, "2026-01-13", FormatDate(csci.Anchor.Date()))
}

func TestExtractTeachingTimetableNonBreakingSpaces(t *testing.T) {
	page := teachingPage(teachingRowFixture{
		code: "ROSE5720-", nbr: "9578", title: "Robotics&nbsp;Systems", period: "Mon&nbsp;18:30&nbsp;-&nbsp;21:15",
		room: "LSK&nbsp;LT2", dates: "12/01/2026&nbsp;-&nbsp;13/04/2026", instructor: "Prof.&nbsp;Chan",
	})
	records, err := ExtractTeachingTimetable(context.Background(), page, Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Mon", records[0].Day())
	require.Equal(t, "18:30", records[0].Start.String())
	require.Equal(t, "21:15", records[0].End.String())
	require.Equal(t, "LSK LT2", records[0].Location)
	require.Equal(t, "2026-01-12", FormatDate(records[0].Anchor.Date()))
}

func TestExtractTeachingTimetableExplicitTerm(t *testing.T) {
	opts := Options{
		TermStart: timezone.Date(2026, time.January, 5),
		TermEnd:   timezone.Date(2026, time.April, 18),
	}
	records, err := ExtractTeachingTimetable(context.Background(), teachingPage(teachingFixture...), opts)
	require.NoError(t, err)
	require.Equal(t, "2026-01-05", FormatDate(records[0].Anchor.Date()))
	require.Equal(t, "2026-04-18", FormatDate(records[0].Anchor.(WeeklyRecurring).TermEnd))
}

func TestExtractTeachingTimetableSelection(t *testing.T) {
	ctx := context.Background()
	page := teachingPage(teachingFixture...)

	records, err := ExtractTeachingTimetable(ctx, page, Options{Selected: []string{"9578"}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		require.Equal(t, "9578", r.ClassNumber)
	}

	records, err = ExtractTeachingTimetable(ctx, page, Options{Selected: []string{"ROSE57"}})
	require.NoError(t, err)
	require.Len(t, records, 3)

	records, err = ExtractTeachingTimetable(ctx, page, Options{Selected: []string{" ROSE5770 ", "5001"}})
	require.NoError(t, err)
	require.Len(t, records, 2)

	_, err = ExtractTeachingTimetable(ctx, page, Options{Selected: []string{"ROSE5790"}})
	require.ErrorIs(t, err, ErrNoClassRows)
}

func TestExtractTeachingTimetableShortMeetingDates(t *testing.T) {
	page := teachingPage(teachingRowFixture{
		code: "5720", nbr: "9578", title: "Robotics", period: "Fri 09:30 - 11:15",
		room: "MMW 702", dates: "9/1, 16/1, 23/1, 30/1",
	})
	opts := Options{
		SubjectHint: "ROSE",
		Now:         func() time.Time { return time.Date(2026, time.January, 2, 9, 0, 0, 0, timezone.Location) },
	}
	records, err := ExtractTeachingTimetable(context.Background(), page, opts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "ROSE", records[0].Subject)
	require.Equal(t, "5720", records[0].CatalogNumber)
	require.Equal(t, WeeklyRecurring{
		FirstDate: timezone.Date(2026, time.January, 9),
		TermEnd:   timezone.Date(2026, time.January, 30),
	}, records[0].Anchor)
}

func TestExtractTeachingTimetableHeuristicTable(t *testing.T) {
	page := `<html><body>
	<table id="layout"><tr><td>Search results</td></tr></table>
	<table class="results">
		<tr><td>Subject</td><td>Course</td><td>Section</td><td>Day</td><td>Time</td><td>Room</td><td>Instructor</td></tr>
		<tr><td>MATH</td><td>1010</td><td>B</td><td>Monday</td><td>09:30 - 10:15</td><td>LSB LT1</td><td>Dr. Wong</td></tr>
		<tr><td>MATH</td><td>1010</td><td>B</td><td>Wed</td><td>09:30 - 10:15</td><td>LSB LT1</td><td>Dr. Wong</td></tr>
		<tr><td>MATH</td><td>1010</td><td>B</td><td>Holiday</td><td>09:30 - 10:15</td><td>LSB LT1</td><td>Dr. Wong</td></tr>
	</table></body></html>`
	opts := Options{
		TermStart: timezone.Date(2026, time.January, 13),
		TermEnd:   timezone.Date(2026, time.May, 9),
	}
	records, err := ExtractTeachingTimetable(context.Background(), page, opts)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "MATH1010-B", records[0].Summary())
	require.Equal(t, "Dr. Wong", records[0].Instructors)
	require.Equal(t, "1010", records[0].Title)
	require.Equal(t, "2026-01-19", FormatDate(records[0].Anchor.Date()))
	require.Equal(t, "2026-01-14", FormatDate(records[1].Anchor.Date()))
}

func TestExtractTeachingTimetableErrors(t *testing.T) {
	ctx := context.Background()

	_, err := ExtractTeachingTimetable(ctx, "<html><body><p>No results</p></body></html>", Options{})
	require.ErrorIs(t, err, ErrTimetableNotFound)

	noDates := strings.ReplaceAll(teachingPage(teachingFixture...), "/2026", "")
	noDates = strings.ReplaceAll(noDates, "Meeting Date", "Notes")
	_, err = ExtractTeachingTimetable(ctx, noDates, Options{})
	require.ErrorIs(t, err, ErrTermDatesUndetermined)
	require.Contains(t, err.Error(), "Meeting Date")

	reversed := Options{TermStart: timezone.Date(2026, time.May, 1)}
	_, err = ExtractTeachingTimetable(ctx, teachingPage(teachingFixture...), reversed)
	require.ErrorIs(t, err, ErrTermDatesUndetermined)
	require.Contains(t, err.Error(), "before term start")
	require.NotContains(t, err.Error(), "Meeting Date")

	noTimes := teachingPage(teachingRowFixture{
		code: "ROSE5720-", nbr: "9578", title: "Robotics", period: "TBA",
		room: "TBA", dates: "12/01/2026 - 13/04/2026",
	})
	_, err = ExtractTeachingTimetable(ctx, noTimes, Options{})
	require.ErrorIs(t, err, ErrNoClassRows)
}

func TestExtractTeachingTimetableSameStartDifferentEnd(t *testing.T) {
	page := teachingPage(
		teachingRowFixture{"ROSE5720-", "9578", "Robotics Systems", "Mon 18:30 - 19:15", "LSK LT2", "12/01/2026 - 13/04/2026", "Prof. Chan"},
		teachingRowFixture{"", "", "", "Mon 18:30 - 21:15", "LSK LT2", "12/01/2026 - 13/04/2026", ""},
	)
	records, err := ExtractTeachingTimetable(context.Background(), page, Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "19:15", records[0].End.String())
	require.Equal(t, "21:15", records[1].End.String())
}
