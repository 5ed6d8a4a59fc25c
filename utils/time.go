package utils

import "time"

// MonthStart truncates t to the first instant of its calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel renders a month bucket as "Jan 2024".
func MonthLabel(t time.Time) string {
	return MonthStart(t).Format("Jan 2006")
}
