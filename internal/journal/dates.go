package journal

import (
	"fmt"
	"strings"
	"time"

	apperrors "eduaudit/internal/errors"
)

// Month headers in the gradebook are nominative: "Сентябрь", "Октябрь".
var nominativeMonths = map[string]time.Month{
	"январь":   time.January,
	"февраль":  time.February,
	"март":     time.March,
	"апрель":   time.April,
	"май":      time.May,
	"июнь":     time.June,
	"июль":     time.July,
	"август":   time.August,
	"сентябрь": time.September,
	"октябрь":  time.October,
	"ноябрь":   time.November,
	"декабрь":  time.December,
}

// parseMonth maps a month header to a time.Month.
func parseMonth(name string) (time.Month, error) {
	m, ok := nominativeMonths[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, apperrors.NewUpstreamFormatError(fmt.Sprintf("unknown month %q", name), nil)
	}
	return m, nil
}

// lessonDate builds a calendar date and rejects days that overflow the month.
func lessonDate(day int, month time.Month, year int, loc *time.Location) (time.Time, error) {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if day < 1 || d.Month() != month {
		return time.Time{}, apperrors.NewUpstreamFormatError(
			fmt.Sprintf("invalid lesson date %d %s %d", day, month, year), nil)
	}
	return d, nil
}

// IsSenior reports whether a grade label belongs to the half-year system
// (grades 10 and 11).
func IsSenior(grade string) bool {
	return strings.HasPrefix(grade, "10") || strings.HasPrefix(grade, "11")
}

// YearFor returns the calendar year in which a term's lessons take place.
// years holds the two calendar years of the academic year.
func YearFor(grade string, term int, years []int) (int, error) {
	idx := term / 3
	if IsSenior(grade) {
		idx = term / 2
	}
	if idx < 0 || idx >= len(years) {
		return 0, apperrors.NewUpstreamFormatError(
			fmt.Sprintf("no academic year for term %d of %s", term, grade), nil).
			WithContext("years", years)
	}
	return years[idx], nil
}

// Terms lists the periods to fetch for a grade. Senior grades are graded
// by half-year, so the quarter range collapses to 1..to/3+1.
func Terms(grade string, from, to int) []int {
	if IsSenior(grade) {
		from, to = 1, to/3+1
	}
	terms := make([]int, 0, max(to-from+1, 0))
	for t := from; t <= to; t++ {
		terms = append(terms, t)
	}
	return terms
}
