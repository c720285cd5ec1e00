package billing

import (
	"time"
)

// =============================================================================
// DATE - Calendar-day abstraction (everything in billing is a calendar date)
// =============================================================================

// Date is a calendar date with day granularity. The zero value is "no date".
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// MonthStart returns the first day of the month n months after d's month.
// Anchoring to day 1 before shifting avoids end-of-month overflow
// (Jan 31 + 1 month must land in February, not March).
func (d Date) MonthStart(n int) Date {
	return NewDate(d.Time.Year(), d.Time.Month()+time.Month(n), 1)
}

// MonthEnd returns the last calendar day of d's month.
func (d Date) MonthEnd() Date {
	return NewDate(d.Time.Year(), d.Time.Month()+1, 1).AddDays(-1)
}

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DaysBetween returns the calendar-day difference to - from.
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}
