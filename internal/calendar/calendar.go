// Package calendar implements the pure market-calendar predicates the
// lifecycle controller drives its daily edge events from. It is
// deliberately side-effect free: no errors, no I/O, no shared state.
package calendar

import "time"

// Trading session bounds, in minutes since local midnight:
// [09:30,11:30] ∪ [13:00,15:00].
const (
	morningOpenMin    = 9*60 + 30
	morningCloseMin   = 11*60 + 30
	afternoonOpenMin  = 13 * 60
	afternoonCloseMin = 15 * 60
)

func minutesOfDay(t time.Time) int {
	h, m, _ := t.Clock()

	return h*60 + m
}

// HolidayLookup answers whether a given date is a market holiday. The
// default Calendar has no holiday knowledge (every weekday is a trading
// day); callers with a real holiday calendar inject one here.
type HolidayLookup interface {
	IsHoliday(t time.Time) bool
}

// Calendar is the TradingCalendar contract: pure predicates evaluated
// against t normalized into loc before any weekday or clock check, so a
// caller whose market trades in a timezone other than the host
// process's still gets correct results.
type Calendar struct {
	holidays HolidayLookup
	loc      *time.Location
}

// New returns a Calendar with no holiday list, normalizing into the
// host process's local timezone: every weekday is a trading day.
func New() *Calendar {
	return &Calendar{loc: time.Local}
}

// NewWithHolidays returns a Calendar consulting holidays for the
// is_trading_day predicate, normalizing into the host process's local
// timezone.
func NewWithHolidays(holidays HolidayLookup) *Calendar {
	return &Calendar{holidays: holidays, loc: time.Local}
}

// NewWithLocale returns a Calendar that normalizes every predicate's
// input time into loc (nil defaults to time.Local) before evaluating
// weekday and trading-hours, for a deployment whose market trades in a
// different timezone than the host process.
func NewWithLocale(loc *time.Location, holidays HolidayLookup) *Calendar {
	if loc == nil {
		loc = time.Local
	}

	return &Calendar{holidays: holidays, loc: loc}
}

// IsTradingDay reports whether t, normalized into c.loc, falls on a
// trading day: not a weekend, and not a configured holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.loc)

	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	if c.holidays != nil && c.holidays.IsHoliday(t) {
		return false
	}

	return true
}

// IsTradingHours reports whether t is a trading day and its clock, in
// c.loc, falls in [09:30,11:30] ∪ [13:00,15:00].
func (c *Calendar) IsTradingHours(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}

	minute := minutesOfDay(t.In(c.loc))

	inMorning := minute >= morningOpenMin && minute <= morningCloseMin
	inAfternoon := minute >= afternoonOpenMin && minute <= afternoonCloseMin

	return inMorning || inAfternoon
}
