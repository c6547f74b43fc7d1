package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cuhk-timetable/scraper"
	"cuhk-timetable/timezone"

	ics "github.com/arran4/golang-ical"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = func() time.Time { return time.Date(2026, time.January, 1, 8, 0, 0, 0, time.UTC) }

func weeklyRecord() scraper.Record {
	return scraper.Record{
		Subject:       "ROSE",
		CatalogNumber: "5770",
		Section:       "-",
		ClassCode:     "ROSE5770-",
		ClassNumber:   "9580",
		Title:         "Motion Planning",
		Instructors:   "Prof. Li",
		Location:      "Li Koon Chun Hall LT1",
		Anchor: scraper.WeeklyRecurring{
			FirstDate: timezone.Date(2026, time.January, 5),
			TermEnd:   timezone.Date(2026, time.April, 18),
		},
		Start: scraper.Clock{Hour: 18, Minute: 30},
		End:   scraper.Clock{Hour: 21, Minute: 15},
	}
}

func singleRecord() scraper.Record {
	return scraper.Record{
		Subject:       "ROSE",
		CatalogNumber: "5730",
		Section:       "A",
		ClassCode:     "ROSE5730",
		Title:         "Lecture",
		Location:      "Eng Bldg 407",
		Anchor:        scraper.SingleDate{On: timezone.Date(2026, time.February, 27)},
		Start:         scraper.Clock{Hour: 18, Minute: 30},
		End:           scraper.Clock{Hour: 21, Minute: 15},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	require.Error(t, err)

	require.Equal(t, "out/cuhk_timetable.ics", OutputPath("out/cuhk_timetable", FormatICS))
	require.Equal(t, "timetable.CSV", OutputPath("timetable.CSV", FormatCSV))
	require.Equal(t, "timetable.csv.json", OutputPath("timetable.csv", FormatJSON))
}

func TestWriteICS(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, FormatICS, []scraper.Record{weeklyRecord(), singleRecord()}, Options{Now: fixedNow})
	require.NoError(t, err)
	out := buf.String()

	require.Contains(t, out, "PRODID:-//CUHK Timetable Export//EN")
	require.Contains(t, out, "CALSCALE:GREGORIAN")
	require.Contains(t, out, "X-WR-CALNAME:CUHK Timetable")
	require.Contains(t, out, "X-WR-TIMEZONE:Asia/Hong_Kong")

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	weekly := events[0]
	require.Equal(t, "ROSE5770", weekly.GetProperty(ics.ComponentPropertySummary).Value)
	require.Equal(t, "Li Koon Chun Hall LT1", weekly.GetProperty(ics.ComponentPropertyLocation).Value)
	require.True(t, strings.HasSuffix(weekly.Id(), "@cuhk-timetable-export"))

	start := weekly.GetProperty(ics.ComponentPropertyDtStart)
	require.Equal(t, "20260105T183000", start.Value)
	require.Equal(t, []string{"Asia/Hong_Kong"}, start.ICalParameters["TZID"])
	end := weekly.GetProperty(ics.ComponentPropertyDtEnd)
	require.Equal(t, "20260105T211500", end.Value)
	require.Equal(t, "FREQ=WEEKLY;UNTIL=20260418T235959Z", weekly.GetProperty(ics.ComponentPropertyRrule).Value)
	require.Contains(t, out, "DTSTAMP:20260101T080000Z")

	startAt, err := weekly.GetStartAt()
	require.NoError(t, err)
	require.True(t, startAt.Equal(time.Date(2026, time.January, 5, 10, 30, 0, 0, time.UTC)))

	single := events[1]
	require.Equal(t, "ROSE5730-A", single.GetProperty(ics.ComponentPropertySummary).Value)
	require.Equal(t, "20260227T183000", single.GetProperty(ics.ComponentPropertyDtStart).Value)
	require.Nil(t, single.GetProperty(ics.ComponentPropertyRrule))

	require.Contains(t, out, "Instructors: Prof. Li")
	require.Contains(t, out, "Course: Motion Planning")
}

func TestWriteICSDeterministic(t *testing.T) {
	records := []scraper.Record{weeklyRecord(), singleRecord()}

	var first, second bytes.Buffer
	require.NoError(t, Write(&first, FormatICS, records, Options{Now: fixedNow}))
	require.NoError(t, Write(&second, FormatICS, records, Options{Now: fixedNow}))
	require.Equal(t, first.String(), second.String())

	require.Equal(t, EventUID(weeklyRecord()), EventUID(weeklyRecord()))
	require.NotEqual(t, EventUID(weeklyRecord()), EventUID(singleRecord()))

	moved := weeklyRecord()
	moved.Start = scraper.Clock{Hour: 9, Minute: 30}
	require.NotEqual(t, EventUID(weeklyRecord()), EventUID(moved))
}

func TestRows(t *testing.T) {
	rows := Rows([]scraper.Record{weeklyRecord(), singleRecord()})
	want := []Row{
		{
			Subject: "ROSE", CatalogNumber: "5770", Section: "-", ClassCode: "ROSE5770-", ClassNumber: "9580",
			Title: "Motion Planning", Instructors: "Prof. Li", Location: "Li Koon Chun Hall LT1", Day: "Mon",
			StartDate: "2026-01-05", EndDate: "2026-04-18", StartTime: "18:30", EndTime: "21:15",
			Recurrence: "weekly",
		},
		{
			Subject: "ROSE", CatalogNumber: "5730", Section: "A", ClassCode: "ROSE5730",
			Title: "Lecture", Location: "Eng Bldg 407", Day: "Fri",
			StartDate: "2026-02-27", EndDate: "2026-02-27", StartTime: "18:30", EndTime: "21:15",
			Recurrence: "once",
		},
	}
	require.Empty(t, cmp.Diff(want, rows))
}

func TestWriteCSVAndJSON(t *testing.T) {
	records := []scraper.Record{weeklyRecord(), singleRecord()}

	var csvBuf bytes.Buffer
	require.NoError(t, Write(&csvBuf, FormatCSV, records, Options{}))
	lines, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, columns, lines[0])
	require.Equal(t, "Li Koon Chun Hall LT1", lines[1][7])
	require.Equal(t, "once", lines[2][13])

	var jsonBuf bytes.Buffer
	require.NoError(t, Write(&jsonBuf, FormatJSON, records, Options{}))
	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "2026-01-05", decoded[0]["start_date"])
	require.Equal(t, "Fri", decoded[1]["day"])

	jsonBuf.Reset()
	require.NoError(t, Write(&jsonBuf, FormatJSON, nil, Options{}))
	require.Equal(t, "[]\n", jsonBuf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, []scraper.Record{weeklyRecord()}, Options{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, columns, rows[0])
	require.Equal(t, "ROSE5770-", rows[1][3])
	require.Equal(t, "weekly", rows[1][13])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), OutputPath("cuhk_timetable", FormatICS))
	require.NoError(t, WriteFile(context.Background(), path, FormatICS, []scraper.Record{weeklyRecord()}, Options{Now: fixedNow}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "BEGIN:VEVENT")

	err = WriteFile(context.Background(), filepath.Join(t.TempDir(), "missing", "x.ics"), FormatICS, nil, Options{})
	require.Error(t, err)
}
