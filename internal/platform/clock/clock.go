// Package clock isolates the rest of the backend from wall-clock and timezone
// noise. Every study decision is made on calendar days in one reference
// timezone; instants never leak past this package.
package clock

import (
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata"
)

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always reports T. Tests move it forward with Set/Advance.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

func (f *Fixed) Set(t time.Time) { f.T = t }

func (f *Fixed) AdvanceDays(n int) { f.T = f.T.AddDate(0, 0, n) }

const DefaultTimezone = "America/Chicago"

// Calendar answers day-granularity questions in a single reference timezone.
type Calendar struct {
	loc   *time.Location
	clock Clock
}

func NewCalendar(loc *time.Location, c Clock) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if c == nil {
		c = System{}
	}
	return &Calendar{loc: loc, clock: c}
}

// LoadCalendar resolves an IANA zone name; an empty name uses DefaultTimezone.
func LoadCalendar(tz string, c Clock) (*Calendar, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return NewCalendar(loc, c), nil
}

func (c *Calendar) Location() *time.Location { return c.loc }

// Now is the current instant in the reference timezone.
func (c *Calendar) Now() time.Time { return c.clock.Now().In(c.loc) }

// Today is the current calendar date in the reference timezone.
func (c *Calendar) Today() Date { return c.DateOf(c.clock.Now()) }

// DateOf truncates an instant to its calendar date in the reference timezone.
func (c *Calendar) DateOf(t time.Time) Date {
	y, m, d := t.In(c.loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Midnight is the first instant of d in the reference timezone.
func (c *Calendar) Midnight(d Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, c.loc)
}

// DaysBetween is round((midnight(b) - midnight(a)) / 24h). Rounding absorbs
// the 23h and 25h days around DST transitions; b after a is positive.
func (c *Calendar) DaysBetween(a, b Date) int {
	diff := c.Midnight(b).Sub(c.Midnight(a))
	return int(math.Round(diff.Hours() / 24))
}

// OffsetFrom is the number of days from baseline to today.
func (c *Calendar) OffsetFrom(baseline Date) int {
	return c.DaysBetween(baseline, c.Today())
}
