package scraper

import "errors"

var (
	ErrNoCourseData = errors.New("scraper: could not extract any course data from the HTML " +
		"(if this is a saved page, save it as a complete webpage so the schedule frame is included, " +
		"and check that the displayed week is not empty)")
	ErrNoValidMeetings = errors.New("scraper: found course elements in the HTML but could not extract valid day/time information")
	ErrTermDatesUndetermined = errors.New("scraper: could not determine term start/end dates, " +
		"please provide --term-start and --term-end (YYYY-MM-DD)")
	ErrTimetableNotFound = errors.New("scraper: could not find the timetable table in the HTML, please check the file")
	ErrNoHeaderRow       = errors.New("scraper: timetable table has no header row")
	ErrNoClassRows       = errors.New("scraper: no class rows with a valid day/time found in the HTML")
)
