package rules

import (
	"fmt"
	"time"
)

var genitiveMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDate renders a lesson date the way it appears in reports: "02 октября".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d %s", t.Day(), genitiveMonths[t.Month()-1])
}

// GraceDays is how long teachers have to fill in marks after a lesson.
const GraceDays = 8

// graceElapsed reports whether date + GraceDays is strictly before today.
func graceElapsed(date, today time.Time) bool {
	return truncateDay(date).AddDate(0, 0, GraceDays).Before(truncateDay(today))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
