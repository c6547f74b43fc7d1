package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"cuhk-timetable/scraper"

	"github.com/xuri/excelize/v2"
)

const (
	recurrenceWeekly = "weekly"
	recurrenceOnce   = "once"
)

// Row is the flat form of a record shared by the CSV, JSON and XLSX
// writers.
type Row struct {
	Subject       string `json:"subject"`
	CatalogNumber string `json:"catalog_number"`
	Section       string `json:"section"`
	ClassCode     string `json:"class_code"`
	ClassNumber   string `json:"class_number"`
	Title         string `json:"title"`
	Instructors   string `json:"instructors"`
	Location      string `json:"location"`
	Day           string `json:"day"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Recurrence    string `json:"recurrence"`
}

var columns = []string{
	"subject", "catalog_number", "section", "class_code", "class_number",
	"title", "instructors", "location", "day",
	"start_date", "end_date", "start_time", "end_time", "recurrence",
}

func (r Row) values() []string {
	return []string{
		r.Subject, r.CatalogNumber, r.Section, r.ClassCode, r.ClassNumber,
		r.Title, r.Instructors, r.Location, r.Day,
		r.StartDate, r.EndDate, r.StartTime, r.EndTime, r.Recurrence,
	}
}

func Rows(records []scraper.Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{
			Subject:       rec.Subject,
			CatalogNumber: rec.CatalogNumber,
			Section:       rec.Section,
			ClassCode:     rec.ClassCode,
			ClassNumber:   rec.ClassNumber,
			Title:         rec.Title,
			Instructors:   rec.Instructors,
			Location:      rec.Location,
			Day:           rec.Day(),
			StartTime:     rec.Start.String(),
			EndTime:       rec.End.String(),
		}
		switch a := rec.Anchor.(type) {
		case scraper.WeeklyRecurring:
			row.StartDate = scraper.FormatDate(a.FirstDate)
			row.EndDate = scraper.FormatDate(a.TermEnd)
			row.Recurrence = recurrenceWeekly
		case scraper.SingleDate:
			row.StartDate = scraper.FormatDate(a.On)
			row.EndDate = row.StartDate
			row.Recurrence = recurrenceOnce
		}
		rows = append(rows, row)
	}
	return rows
}

func writeCSV(w io.Writer, records []scraper.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, row := range Rows(records) {
		if err := cw.Write(row.values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, records []scraper.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(Rows(records))
}

const sheetName = "Timetable"

func writeXLSX(w io.Writer, records []scraper.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, row := range Rows(records) {
		values := row.values()
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		cellAddr, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cellAddr, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
