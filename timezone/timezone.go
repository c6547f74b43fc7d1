package timezone

import (
	"time"
	_ "time/tzdata"
)

// Name is the IANA zone every timetable date and time is expressed in.
const Name = "Asia/Hong_Kong"

var Location *time.Location

func init() {
	loc, err := time.LoadLocation(Name)
	if err != nil {
		loc = time.FixedZone("HKT", 8*60*60)
	}
	Location = loc
}

func Now() time.Time {
	return time.Now().In(Location)
}

// Date returns midnight of the given calendar day in Location.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Location)
}

// Today truncates t to midnight of its calendar day in Location.
func Today(t time.Time) time.Time {
	t = t.In(Location)
	return Date(t.Year(), t.Month(), t.Day())
}
