package value

import (
	"fmt"
	"time"
)

// LocalDateTime is a wall-clock date and time that carries no zone or offset.
// It is placed in a zone only when formatted.
type LocalDateTime struct {
	Year       int
	Month      time.Month
	Day        int
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// In places the wall clock in loc.
func (d LocalDateTime) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.Nanosecond, loc)
}

func (d LocalDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", d.Year, int(d.Month), d.Day, d.Hour, d.Minute, d.Second)
}

// LocalDate is a calendar date without time or zone.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// In places midnight of the date in loc.
func (d LocalDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// LocalTime is a time of day without date or zone.
type LocalTime struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// In places the time of day on 1970-01-01 in loc.
func (t LocalTime) In(loc *time.Location) time.Time {
	return time.Date(1970, time.January, 1, t.Hour, t.Minute, t.Second, t.Nanosecond, loc)
}

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// LocalDateTimeOf strips the zone from t, keeping its wall clock.
func LocalDateTimeOf(t time.Time) LocalDateTime {
	return LocalDateTime{
		Year: t.Year(), Month: t.Month(), Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond(),
	}
}
