package dates

import "time"

// Layout is the calendar-day key format used by the capacity ledger.
const Layout = "2006-01-02"

// Between returns every calendar day touched by the window [start, end],
// inclusive of both endpoints' dates, as YYYY-MM-DD strings in UTC.
// A reservation ending at 00:30 the next day still occupies that day.
func Between(start, end time.Time) []string {
	s := start.UTC()
	e := end.UTC()

	cur := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)

	var days []string
	for !cur.After(last) {
		days = append(days, cur.Format(Layout))
		cur = cur.AddDate(0, 0, 1)
	}
	return days
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
