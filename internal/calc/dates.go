package calc

import (
	"time"

	"hesapkit.com/internal/validate"
)

type AgeResult struct {
	Years           int `json:"years"`
	Months          int `json:"months"`
	Days            int `json:"days"`
	TotalDays       int `json:"totalDays"`
	TotalWeeks      int `json:"totalWeeks"`
	DaysToBirthday  int `json:"daysToBirthday"`
	NextBirthdayAge int `json:"nextBirthdayAge"`
}

// Age returns the calendar age on the given day. Only the date part of both
// arguments is used.
func Age(birth, on time.Time) (AgeResult, error) {
	birth, on = dateOnly(birth), dateOnly(on)
	if birth.After(on) {
		errs := validate.New()
		errs.Add("birth", validate.CodeDateOrder, on.Format(validate.DateLayout))
		return AgeResult{}, errs
	}

	months := (on.Year()-birth.Year())*12 + int(on.Month()) - int(birth.Month())
	anchor := addMonthsClamped(birth, months)
	if anchor.After(on) {
		months--
		anchor = addMonthsClamped(birth, months)
	}

	total := daysBetween(birth, on)

	next := time.Date(on.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(on) {
		next = time.Date(on.Year()+1, birth.Month(), birth.Day(), 0, 0, 0, 0, time.UTC)
	}

	return AgeResult{
		Years:           months / 12,
		Months:          months % 12,
		Days:            daysBetween(anchor, on),
		TotalDays:       total,
		TotalWeeks:      total / 7,
		DaysToBirthday:  daysBetween(on, next),
		NextBirthdayAge: next.Year() - birth.Year(),
	}, nil
}

type DateDiffResult struct {
	Days          int `json:"days"`
	Weeks         int `json:"weeks"`
	RemainderDays int `json:"remainderDays"`
	BusinessDays  int `json:"businessDays"`
}

// DaysBetween measures the distance between two dates in either order.
// Business days count Monday to Friday in the half-open range [start, end).
func DaysBetween(a, b time.Time) DateDiffResult {
	a, b = dateOnly(a), dateOnly(b)
	if a.After(b) {
		a, b = b, a
	}
	days := daysBetween(a, b)

	business := (days / 7) * 5
	start := a.AddDate(0, 0, (days/7)*7)
	for d := start; d.Before(b); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			business++
		}
	}

	return DateDiffResult{
		Days:          days,
		Weeks:         days / 7,
		RemainderDays: days % 7,
		BusinessDays:  business,
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonthsClamped moves t forward n months, pinning the day to the end of
// the target month when it is shorter.
func addMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

// daysBetween counts whole days from a to b; both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
