// Package units provides shared time conversions and the fixed analysis
// window used by the breakup detection pipeline.
package units

import "time"

// Analysis window bounds. Observations are only considered between the
// period-of-interest start (Feb 15) and end (Oct 1) of the target year.
// Dummy water anchors are injected between Sept 1 and Oct 1.
const (
	WindowStartMonth = time.February
	WindowStartDay   = 15
	WindowEndMonth   = time.October
	WindowEndDay     = 1
	DummyStartMonth  = time.September
	DummyStartDay    = 1
)

// DaysInYear returns 366 for leap years, 365 otherwise.
func DaysInYear(year int) int {
	if isLeap(year) {
		return 366
	}
	return 365
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DayOfYear returns the 1-based day of year for a date in UTC.
func DayOfYear(t time.Time) int {
	return t.UTC().YearDay()
}

// DOY returns the 1-based day of year for a calendar date.
func DOY(year int, month time.Month, day int) int {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).YearDay()
}

// WindowStartDOY returns the day of year of the analysis window start
// (Feb 15) for the given year.
func WindowStartDOY(year int) int {
	return DOY(year, WindowStartMonth, WindowStartDay)
}

// WindowEndDOY returns the day of year of the analysis window end
// (Oct 1) for the given year.
func WindowEndDOY(year int) int {
	return DOY(year, WindowEndMonth, WindowEndDay)
}

// DummyStartDOY returns the day of year of the dummy anchor window start
// (Sept 1) for the given year.
func DummyStartDOY(year int) int {
	return DOY(year, DummyStartMonth, DummyStartDay)
}

// FracYear converts a fractional day of year to a fractional year, e.g.
// DOY 1.0 of 2018 maps to 2018.0. Used as the time covariate in the
// logistic regression; within one season it is an affine transform of
// day of year, so fit quality is unaffected by the choice.
func FracYear(year int, doy float64) float64 {
	return float64(year) + (doy-1)/float64(DaysInYear(year))
}

// InWindow reports whether a day of year falls inside the analysis
// window for the given year (inclusive on both ends).
func InWindow(year int, doy float64) bool {
	return doy >= float64(WindowStartDOY(year)) && doy <= float64(WindowEndDOY(year))
}
