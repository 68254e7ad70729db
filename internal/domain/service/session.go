package service

import (
	"time"
)

// TradingCalendar answers whether a UTC instant falls inside NYSE regular
// trading hours (09:30-16:00 America/New_York, weekdays, excluding full
// market holidays). Early closes are treated as regular sessions; that is a
// deliberate simplification over a full exchange calendar.
type TradingCalendar struct {
	loc *time.Location
}

// NewTradingCalendar loads the exchange timezone. Falls back to a fixed
// EST offset if the tz database is unavailable.
func NewTradingCalendar() *TradingCalendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*3600)
	}
	return &TradingCalendar{loc: loc}
}

// IsRegularHours reports whether t falls within the regular session.
func (c *TradingCalendar) IsRegularHours(t time.Time) bool {
	et := t.In(c.loc)
	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if c.isHoliday(et) {
		return false
	}
	sessionOpen := time.Date(et.Year(), et.Month(), et.Day(), 9, 30, 0, 0, c.loc)
	sessionClose := time.Date(et.Year(), et.Month(), et.Day(), 16, 0, 0, 0, c.loc)
	return !et.Before(sessionOpen) && et.Before(sessionClose)
}

// isHoliday covers the full-day NYSE holidays: New Year's Day, MLK Day,
// Presidents Day, Good Friday, Memorial Day, Juneteenth, Independence Day,
// Labor Day, Thanksgiving, Christmas (with weekend observation shifts).
func (c *TradingCalendar) isHoliday(et time.Time) bool {
	y, m, d := et.Year(), et.Month(), et.Day()

	for _, h := range []time.Time{
		observed(time.Date(y, time.January, 1, 0, 0, 0, 0, c.loc)),
		observed(time.Date(y, time.June, 19, 0, 0, 0, 0, c.loc)),
		observed(time.Date(y, time.July, 4, 0, 0, 0, 0, c.loc)),
		observed(time.Date(y, time.December, 25, 0, 0, 0, 0, c.loc)),
	} {
		if h.Month() == m && h.Day() == d && h.Year() == y {
			return true
		}
	}

	switch {
	case m == time.January && et.Weekday() == time.Monday && weekdayOrdinal(d) == 3:
		return true // MLK Day
	case m == time.February && et.Weekday() == time.Monday && weekdayOrdinal(d) == 3:
		return true // Presidents Day
	case m == time.May && et.Weekday() == time.Monday && d+7 > 31:
		return true // Memorial Day (last Monday)
	case m == time.September && et.Weekday() == time.Monday && weekdayOrdinal(d) == 1:
		return true // Labor Day
	case m == time.November && et.Weekday() == time.Thursday && weekdayOrdinal(d) == 4:
		return true // Thanksgiving
	}

	gf := goodFriday(y, c.loc)
	return gf.Month() == m && gf.Day() == d
}

// weekdayOrdinal returns which occurrence of its weekday a day-of-month is
// (1 for days 1-7, 2 for 8-14, ...).
func weekdayOrdinal(day int) int {
	return (day-1)/7 + 1
}

// observed shifts a fixed-date holiday landing on a weekend to the nearest
// weekday (Saturday -> Friday, Sunday -> Monday), per exchange convention.
func observed(h time.Time) time.Time {
	switch h.Weekday() {
	case time.Saturday:
		return h.AddDate(0, 0, -1)
	case time.Sunday:
		return h.AddDate(0, 0, 1)
	}
	return h
}

// goodFriday computes the Friday before Easter Sunday using the Gregorian
// computus.
func goodFriday(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	cc := year % 100
	dd := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - dd - g + 15) % 30
	i := cc / 4
	k := cc % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	mm := (a + 11*h + 22*l) / 451
	month := (h + l - 7*mm + 114) / 31
	day := (h+l-7*mm+114)%31 + 1
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	return easter.AddDate(0, 0, -2)
}
