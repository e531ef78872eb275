// Package api contains the request and response bodies of the v1 HTTP API.
package api

import (
	"eduaudit/internal/config"
	"eduaudit/pkg/contracts/domain"
)

// CheckRequest starts a journal check. Empty fields fall back to the
// configured defaults and the stored credentials.
type CheckRequest struct {
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`

	ClassFrom int `json:"class_from,omitempty" validate:"omitempty,min=1,max=11"`
	ClassTo   int `json:"class_to,omitempty" validate:"omitempty,min=1,max=11"`
	TermFrom  int `json:"term_from,omitempty" validate:"omitempty,min=1,max=4"`
	TermTo    int `json:"term_to,omitempty" validate:"omitempty,min=1,max=4"`

	MinFor5 *float64 `json:"min_for_5,omitempty" validate:"omitempty,gte=0,lte=5"`
	MinFor4 *float64 `json:"min_for_4,omitempty" validate:"omitempty,gte=0,lte=5"`
	MinFor3 *float64 `json:"min_for_3,omitempty" validate:"omitempty,gte=0,lte=5"`

	LessonPercent *int    `json:"lesson_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	TermPercent   *int    `json:"term_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	AllowedNotRow *string `json:"allowed_not_row,omitempty"`

	CheckControlWork  *bool `json:"check_control_work,omitempty"`
	CheckMeta         *bool `json:"check_meta,omitempty"`
	CheckLessonsFill  *bool `json:"check_lessons_fill,omitempty"`
	CheckStudentsFill *bool `json:"check_students_fill,omitempty"`
	CheckDoubleTwo    *bool `json:"check_double_two,omitempty"`
	CheckTermMarks    *bool `json:"check_term_marks,omitempty"`

	GroupBy string `json:"group_by,omitempty" validate:"omitempty,oneof=grades teachers"`
}

// Apply overlays the fields set in the request on defaults.
func (r CheckRequest) Apply(defaults config.AuditConfig) config.AuditConfig {
	cfg := defaults
	setInt(&cfg.ClassFrom, r.ClassFrom)
	setInt(&cfg.ClassTo, r.ClassTo)
	setInt(&cfg.TermFrom, r.TermFrom)
	setInt(&cfg.TermTo, r.TermTo)
	setPtr(&cfg.MinFor5, r.MinFor5)
	setPtr(&cfg.MinFor4, r.MinFor4)
	setPtr(&cfg.MinFor3, r.MinFor3)
	setPtr(&cfg.LessonPercent, r.LessonPercent)
	setPtr(&cfg.TermPercent, r.TermPercent)
	setPtr(&cfg.AllowedNotRow, r.AllowedNotRow)
	setPtr(&cfg.CheckControlWork, r.CheckControlWork)
	setPtr(&cfg.CheckMeta, r.CheckMeta)
	setPtr(&cfg.CheckLessonsFill, r.CheckLessonsFill)
	setPtr(&cfg.CheckStudentsFill, r.CheckStudentsFill)
	setPtr(&cfg.CheckDoubleTwo, r.CheckDoubleTwo)
	setPtr(&cfg.CheckTermMarks, r.CheckTermMarks)
	if r.GroupBy != "" {
		cfg.GroupBy = r.GroupBy
	}
	return cfg
}

// ReportRequest starts the summary reports.
type ReportRequest struct {
	Login      string `json:"login,omitempty"`
	Password   string `json:"password,omitempty"`
	Term       int    `json:"term,omitempty" validate:"omitempty,min=1,max=4"`
	StartGrade int    `json:"start_grade,omitempty" validate:"omitempty,min=1,max=11"`
}

// Apply overlays the fields set in the request on defaults.
func (r ReportRequest) Apply(defaults config.ReportConfig) config.ReportConfig {
	cfg := defaults
	setInt(&cfg.Term, r.Term)
	setInt(&cfg.StartGrade, r.StartGrade)
	return cfg
}

// CredentialsRequest stores the portal login.
type CredentialsRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CredentialsResponse tells whether credentials are stored. The password
// is never returned.
type CredentialsResponse struct {
	Stored bool   `json:"stored"`
	Login  string `json:"login,omitempty"`
}

// RunResponse wraps the snapshot of a run.
type RunResponse struct {
	Run domain.RunSnapshot `json:"run"`
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
