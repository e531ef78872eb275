// Package rules holds the gradebook checks. Every check is a pure function
// over one normalized gradebook table and the threshold configuration.
package rules

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"eduaudit/pkg/contracts/domain"
)

// Warning messages.
const (
	MsgTermMismatch    = "Несоответствие средней и четвертной оценок. Строка %d"
	MsgNoAverage       = "Нет среднего балла. Строка %d"
	MsgNoTermMark      = "Нет четвертной оценки. Строка %d"
	MsgNoErrorReview   = "После КР или Дикт. не работа над ошибками"
	MsgNoMeta          = "Нет темы урока или ДЗ"
	MsgFullColumn      = "Должен быть ряд оценок"
	MsgFewLessonMarks  = "Мало оценок за урок"
	MsgFewStudentMarks = "У ученика мало оценок за четверть. Строка %d"
	MsgConsecutiveTwos = "Две двойки подряд"
)

// Rule names used for metrics.
const (
	RuleTermMarks    = "term_marks"
	RuleControlWork  = "control_work"
	RuleMeta         = "meta"
	RuleLessonsFill  = "lessons_fill"
	RuleStudentsFill = "students_fill"
	RuleDoubleTwo    = "double_two"
)

// Input is one normalized gradebook table.
type Input struct {
	Subject string
	Lessons []domain.LessonRecord
	Rows    []domain.StudentRow
	Today   time.Time
}

// Rule is the signature shared by every check.
type Rule func(Input, domain.ThresholdConfig) []domain.Warning

// Stats counts warnings per rule.
type Stats map[string]int

func dated(msg string, lesson domain.LessonRecord) domain.Warning {
	return domain.Warning{Message: msg, Date: FormatDate(lesson.Date)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ExpectedTermMark maps an average to the term mark it should produce, or 0
// when the average is below every cutoff.
func ExpectedTermMark(avg float64, cfg domain.ThresholdConfig) int {
	switch {
	case avg >= cfg.MinFor5:
		return 5
	case avg >= cfg.MinFor4:
		return 4
	case avg >= cfg.MinFor3:
		return 3
	}
	return 0
}

func parseAverage(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// TermMarks compares each student's average with the recorded term mark.
// A term mark that is not a number counts as missing and is reported
// before the average is looked at. Rows are numbered from 1.
func TermMarks(in Input, cfg domain.ThresholdConfig) []domain.Warning {
	var warns []domain.Warning
	for i, row := range in.Rows {
		n := i + 1
		mark, ok := termMark(row.TermMark)
		if !ok {
			warns = append(warns, domain.Warning{Message: fmt.Sprintf(MsgNoTermMark, n)})
			continue
		}
		avg, ok := parseAverage(row.Average)
		if !ok {
			warns = append(warns, domain.Warning{Message: fmt.Sprintf(MsgNoAverage, n)})
			continue
		}
		if want := ExpectedTermMark(avg, cfg); want != 0 && mark != want {
			warns = append(warns, domain.Warning{Message: fmt.Sprintf(MsgTermMismatch, n)})
		}
	}
	return warns
}

// termMark parses a term mark cell. Only plain digits count; pass/fail
// notes such as "зач" or "н/а" do not.
func termMark(cell string) (int, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	mark, err := strconv.Atoi(s)
	return mark, err == nil
}

// ControlWork requires every control work or dictation to be followed by an
// error review lesson. The last column has nothing to follow it and is exempt.
func ControlWork(in Input, _ domain.ThresholdConfig) []domain.Warning {
	var warns []domain.Warning
	for i := 0; i+1 < len(in.Lessons); i++ {
		if slices.Contains(domain.ControlWorkTypes, in.Lessons[i].Type) &&
			in.Lessons[i+1].Type != domain.LessonErrorReview {
			warns = append(warns, dated(MsgNoErrorReview, in.Lessons[i]))
		}
	}
	return warns
}

// Meta reports lessons without a topic or homework.
func Meta(in Input, _ domain.ThresholdConfig) []domain.Warning {
	var warns []domain.Warning
	for _, lesson := range in.Lessons {
		if !lesson.HasMeta {
			warns = append(warns, dated(MsgNoMeta, lesson))
		}
	}
	return warns
}

// StudentsFill reports students with too few marks over the term.
func StudentsFill(in Input, cfg domain.ThresholdConfig) []domain.Warning {
	var warns []domain.Warning
	for i, row := range in.Rows {
		if w, ok := studentFill(i, row, len(in.Lessons), cfg); ok {
			warns = append(warns, w)
		}
	}
	return warns
}

func studentFill(i int, row domain.StudentRow, lessons int, cfg domain.ThresholdConfig) (domain.Warning, bool) {
	if lessons == 0 {
		return domain.Warning{}, false
	}
	marks := 0
	for _, cell := range row.Marks {
		if slices.Contains(domain.MarkSymbols, strings.TrimSpace(cell)) {
			marks++
		}
	}
	if round2(float64(marks)/float64(lessons)) < round2(float64(cfg.TermPercent)/100) {
		return domain.Warning{Message: fmt.Sprintf(MsgFewStudentMarks, i+1)}, true
	}
	return domain.Warning{}, false
}

// DoubleTwo reports two failing marks in adjacent lessons, dated by the
// second one.
func DoubleTwo(in Input, _ domain.ThresholdConfig) []domain.Warning {
	var warns []domain.Warning
	for _, row := range in.Rows {
		warns = append(warns, doubleTwo(row, in.Lessons)...)
	}
	return warns
}

func doubleTwo(row domain.StudentRow, lessons []domain.LessonRecord) []domain.Warning {
	var warns []domain.Warning
	n := min(len(row.Marks), len(lessons))
	for j := 0; j+1 < n; j++ {
		if strings.TrimSpace(row.Marks[j]) == domain.FailingMark &&
			strings.TrimSpace(row.Marks[j+1]) == domain.FailingMark {
			warns = append(warns, dated(MsgConsecutiveTwos, lessons[j+1]))
		}
	}
	return warns
}

// LessonsFill reports lessons where too many students have no mark.
func LessonsFill(in Input, cfg domain.ThresholdConfig) []domain.Warning {
	students := len(in.Rows)
	if students == 0 {
		return nil
	}

	allowedEmpty := 1 - round2(float64(cfg.LessonPercent)/100)

	var warns []domain.Warning
	for i, lesson := range in.Lessons {
		empty := 0
		for _, row := range in.Rows {
			if i >= len(row.Marks) || strings.TrimSpace(row.Marks[i]) == "" {
				empty++
			}
		}

		if needsFullColumn(lesson.Type, in.Subject, cfg.AllowedNotRow) {
			if empty > 0 && graceElapsed(lesson.Date, in.Today) {
				warns = append(warns, dated(MsgFullColumn, lesson))
			}
			continue
		}

		if round2(float64(empty)/float64(students)) > allowedEmpty {
			if slices.Contains(domain.GraceLessonTypes, lesson.Type) && !graceElapsed(lesson.Date, in.Today) {
				continue
			}
			warns = append(warns, dated(MsgFewLessonMarks, lesson))
		}
	}
	return warns
}

// needsFullColumn reports whether every student must be marked for a lesson
// type. Practical work is exempt for subjects starting with an allowed prefix.
func needsFullColumn(lessonType, subject string, allowedPrefixes []string) bool {
	if !slices.Contains(domain.FullColumnTypes, lessonType) {
		return false
	}
	if lessonType != domain.LessonPractical {
		return true
	}
	for _, prefix := range allowedPrefixes {
		if prefix != "" && strings.HasPrefix(subject, prefix) {
			return false
		}
	}
	return true
}

// Evaluate runs every enabled rule in report order: control work, metadata,
// per-row student checks, per-lesson fill, then term marks.
func Evaluate(in Input, cfg domain.ThresholdConfig) ([]domain.Warning, Stats) {
	var warns []domain.Warning
	stats := Stats{}

	add := func(rule string, ws ...domain.Warning) {
		warns = append(warns, ws...)
		stats[rule] += len(ws)
	}

	if cfg.CheckControlWork {
		add(RuleControlWork, ControlWork(in, cfg)...)
	}
	if cfg.CheckMeta {
		add(RuleMeta, Meta(in, cfg)...)
	}

	if cfg.NeedsMarks() && len(in.Rows) > 0 {
		for i, row := range in.Rows {
			if cfg.CheckStudentsFill {
				if w, ok := studentFill(i, row, len(in.Lessons), cfg); ok {
					add(RuleStudentsFill, w)
				}
			}
			if cfg.CheckDoubleTwo {
				add(RuleDoubleTwo, doubleTwo(row, in.Lessons)...)
			}
		}
		if cfg.CheckLessonsFill {
			add(RuleLessonsFill, LessonsFill(in, cfg)...)
		}
	}

	if cfg.CheckTermMarks {
		add(RuleTermMarks, TermMarks(in, cfg)...)
	}

	return warns, stats
}
