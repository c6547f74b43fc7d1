package scraper

import (
	"fmt"
	"time"
)

// Clock is a wall-clock time of day in 24-hour form.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Before(other Clock) bool {
	return c.Minutes() < other.Minutes()
}

// On combines the clock with the calendar day of date.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// Anchor pins a record to the calendar. It is either a SingleDate or a
// WeeklyRecurring.
type Anchor interface {
	// Date is the first day the meeting happens.
	Date() time.Time
	isAnchor()
}

// SingleDate is a meeting that happens on exactly one day.
type SingleDate struct {
	On time.Time
}

func (a SingleDate) Date() time.Time { return a.On }
func (SingleDate) isAnchor()         {}

// WeeklyRecurring is a meeting repeating every week from FirstDate until
// TermEnd inclusive. The weekday is the weekday of FirstDate.
type WeeklyRecurring struct {
	FirstDate time.Time
	TermEnd   time.Time
}

func (a WeeklyRecurring) Date() time.Time        { return a.FirstDate }
func (a WeeklyRecurring) Weekday() time.Weekday { return a.FirstDate.Weekday() }
func (WeeklyRecurring) isAnchor()                {}

// Record is one class meeting: a course at a weekday (or a single date) and a
// time slot.
type Record struct {
	Subject       string
	CatalogNumber string
	Section       string
	ClassCode     string
	ClassNumber   string
	Title         string
	Instructors   string
	Location      string
	Anchor        Anchor
	Start         Clock
	End           Clock
}

// Summary is the calendar title of the record: subject and catalog number,
// followed by the section unless it is empty or a placeholder dash.
func (r Record) Summary() string {
	code := r.Subject + r.CatalogNumber
	if r.Section != "" && r.Section != "-" {
		return code + "-" + r.Section
	}
	return code
}

// Day is the 3-letter weekday code the record meets on.
func (r Record) Day() string {
	if r.Anchor == nil {
		return ""
	}
	return DayCode(r.Anchor.Date().Weekday())
}

// Options are the caller-supplied overrides for an extraction call.
type Options struct {
	// TermStart and TermEnd take precedence over every inferred bound. A zero
	// value means "infer".
	TermStart time.Time
	TermEnd   time.Time
	// SubjectHint fills in the subject when the page does not print it.
	SubjectHint string
	// Selected restricts the teaching timetable to these class codes or
	// class numbers. Empty means everything.
	Selected []string
	// StrictTerm disables the month-based term guess.
	StrictTerm bool
	// Now is the reference clock for year and term guesses.
	Now func() time.Time
}

// block is an unvalidated meeting gathered from one grid cell or one group
// of indexed fields.
type block struct {
	subject   string
	catalog   string
	section   string
	classCode string
	title     string
	instr     string
	location  string
	timeText  string
	start     Clock
	end       Clock

	hasDay bool
	day    time.Weekday
	// date is set by the dated grid variant only.
	date time.Time
}

// PageInfo is what a live fetch needs to know about the schedule page it is
// looking at.
type PageInfo struct {
	HasGrid   bool
	WeekStart time.Time
	WeekEnd   time.Time
	TermStart time.Time
	TermEnd   time.Time
}
