// Package domain holds the gradebook audit and school report contracts
// shared between ingestion, rule evaluation, aggregation and export.
package domain

import "time"

// Lesson type codes used by the audit rules.
const (
	LessonControlWork = "КР"
	LessonDictation   = "Д"
	LessonErrorReview = "РО"
	LessonPractical   = "ПР"
)

// ControlWorkTypes must be followed by an error-review lesson.
var ControlWorkTypes = []string{LessonControlWork, LessonDictation}

// FullColumnTypes are lessons where every student is expected to get a mark.
var FullColumnTypes = []string{"КР", "ЛР", "СР", "ПР", "Д", "С", "И", "Т", "СД", "З"}

// GraceLessonTypes only count as underfilled after the grace period.
var GraceLessonTypes = []string{"Р", "П"}

// MarkSymbols are the cell values counted as marks.
var MarkSymbols = []string{"1", "2", "3", "4", "5"}

// FailingMark is the mark checked by the consecutive failing grades rule.
const FailingMark = "2"

// GradeTerm identifies one gradebook table instance.
type GradeTerm struct {
	Grade   string `json:"grade"`
	Subject string `json:"subject"`
	Term    int    `json:"term"`
}

// LessonRecord is one column of the gradebook.
type LessonRecord struct {
	Date    time.Time `json:"date"`
	Type    string    `json:"type"`
	HasMeta bool      `json:"has_meta"`
}

// StudentRow is one student's marks aligned to the lesson columns. Average and
// TermMark are the trailing summary cells of the first page.
type StudentRow struct {
	Name     string   `json:"name,omitempty"`
	Marks    []string `json:"marks"`
	Average  string   `json:"average"`
	TermMark string   `json:"term_mark"`
}

// Warning is a single finding produced by a rule.
type Warning struct {
	Message string `json:"message"`
	Date    string `json:"date,omitempty"`
}

// Cells returns the warning as a spreadsheet row.
func (w Warning) Cells() []interface{} {
	if w.Date == "" {
		return []interface{}{w.Message}
	}
	return []interface{}{w.Message, w.Date}
}

// TermWarnings are the findings of one term in insertion order.
type TermWarnings struct {
	Term     int       `json:"term"`
	Warnings []Warning `json:"warnings"`
}

// SubjectFindings groups the term findings of one subject of one grade.
type SubjectFindings struct {
	Grade   string         `json:"grade"`
	Subject string         `json:"subject"`
	Teacher string         `json:"teacher"`
	Terms   []TermWarnings `json:"terms"`
}

// ClassFindings are the findings of one grade, one entry per subject.
type ClassFindings struct {
	Grade    string            `json:"grade"`
	Subjects []SubjectFindings `json:"subjects"`
}

// TeacherFindings are the findings of one teacher, keyed by initials such
// as "Иванова М П", one entry per subject and grade.
type TeacherFindings struct {
	Initials string            `json:"initials"`
	Entries  []SubjectFindings `json:"entries"`
}

// ThresholdConfig controls which rules run and their cutoffs.
type ThresholdConfig struct {
	MinFor5 float64 `json:"min_for_5" validate:"gte=0,lte=5"`
	MinFor4 float64 `json:"min_for_4" validate:"gte=0,lte=5"`
	MinFor3 float64 `json:"min_for_3" validate:"gte=0,lte=5"`

	LessonPercent int `json:"lesson_percent" validate:"gte=0,lte=100"`
	TermPercent   int `json:"term_percent" validate:"gte=0,lte=100"`

	// AllowedNotRow lists subject prefixes where practical work needs no full column.
	AllowedNotRow []string `json:"allowed_not_row"`

	CheckControlWork  bool `json:"check_control_work"`
	CheckMeta         bool `json:"check_meta"`
	CheckLessonsFill  bool `json:"check_lessons_fill"`
	CheckStudentsFill bool `json:"check_students_fill"`
	CheckDoubleTwo    bool `json:"check_double_two"`
	CheckTermMarks    bool `json:"check_term_marks"`
}

// OnlyTermMarks reports whether the light mode applies: no rule other than
// the term mark consistency check is enabled.
func (c ThresholdConfig) OnlyTermMarks() bool {
	return !(c.CheckControlWork || c.CheckMeta || c.CheckLessonsFill ||
		c.CheckStudentsFill || c.CheckDoubleTwo)
}

// AnyCheck reports whether at least one rule is enabled.
func (c ThresholdConfig) AnyCheck() bool {
	return !c.OnlyTermMarks() || c.CheckTermMarks
}

// NeedsMarks reports whether the rules reading the mark matrix are enabled.
func (c ThresholdConfig) NeedsMarks() bool {
	return c.CheckLessonsFill || c.CheckStudentsFill || c.CheckDoubleTwo
}
