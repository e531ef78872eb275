package audit

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/exporter"
	"eduaudit/internal/infrastructure"
	"eduaudit/internal/journal"
	"eduaudit/internal/operations"
	"eduaudit/internal/portal"
	"eduaudit/internal/rules"
	"eduaudit/pkg/contracts/domain"
)

// Status lines shown while the check runs.
const (
	StatusLoggedIn   = "Успешный вход в аккаунт"
	StatusCollecting = "Сбор нужных данных..."
	MsgCompleted     = "Журналы успешно проверены! Результат - Excel-файл в папке приложения."
)

// Share of the progress bar spent on the grades. The rest is the export.
const gradesShare = 95.0

// Publisher receives the findings of a finished check.
type Publisher interface {
	Publish(ctx context.Context, findings []domain.SubjectFindings) error
}

// Params are the inputs of one check run.
type Params struct {
	Login    string
	Password string
	Audit    config.AuditConfig
}

// Validate rejects runs that cannot start.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Login) == "" || p.Password == "" {
		return apperrors.NewConfigError(apperrors.MsgMissingCredentials, nil)
	}
	if !p.Audit.Thresholds().AnyCheck() {
		return apperrors.NewConfigError(apperrors.MsgNoChecksSelected, nil)
	}
	return nil
}

// Runner walks every gradebook of the selected classes and terms, evaluates
// the rules and writes the findings.
type Runner struct {
	dial      portal.Dialer
	outDir    string
	publisher Publisher
	logger    *slog.Logger
	metrics   *infrastructure.DomainMetrics
	now       func() time.Time
}

// NewRunner creates a runner writing its files to outDir.
func NewRunner(dial portal.Dialer, outDir string, logger *slog.Logger, metrics *infrastructure.DomainMetrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		dial:    dial,
		outDir:  outDir,
		logger:  infrastructure.WithComponent(logger, "audit"),
		metrics: metrics,
		now:     time.Now,
	}
}

// WithPublisher also sends the findings to p after the files are written.
func (r *Runner) WithPublisher(p Publisher) *Runner {
	r.publisher = p
	return r
}

// WithClock replaces the clock that decides which lessons are in the past.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Task binds params to the runner for operations.Runner.
func (r *Runner) Task(params Params) operations.Task {
	return func(ctx context.Context, sink operations.ProgressSink) (*domain.Result, error) {
		return r.Run(ctx, params, sink)
	}
}

// Run performs one check. Any error aborts the run and nothing is written.
func (r *Runner) Run(ctx context.Context, params Params, sink operations.ProgressSink) (*domain.Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	settings := params.Audit
	settings.Normalize()
	thresholds := settings.Thresholds()
	progress := operations.NewProgressTracker(sink)

	client, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.Login(ctx, params.Login, params.Password); err != nil {
		return nil, err
	}
	progress.Status(StatusLoggedIn)

	loader := journal.NewLoader(client, client.BaseURL(), r.logger).WithClock(r.now)
	years, err := loader.Years(ctx)
	if err != nil {
		return nil, err
	}
	progress.Status(StatusCollecting)

	classes, err := loader.Classes(ctx, settings.ClassFrom, settings.ClassTo)
	if err != nil {
		return nil, err
	}

	gradeValue := gradesShare / float64(max(len(classes), 1))
	var findings []domain.SubjectFindings
	for _, class := range classes {
		gradeID, subjects, err := loader.Subjects(ctx, class)
		if err != nil {
			return nil, err
		}
		subjectValue := gradeValue / float64(max(len(subjects), 1))

		for _, subject := range subjects {
			scope := subjectScope{
				class:    class,
				gradeID:  gradeID,
				subject:  subject,
				years:    years,
				settings: settings,
			}
			found, ok, err := r.checkSubject(ctx, loader, progress, scope, thresholds)
			if err != nil {
				return nil, err
			}
			if ok {
				findings = append(findings, found)
			}
			progress.Add(subjectValue)
		}
	}

	grades := make([]string, len(classes))
	for i, class := range classes {
		grades[i] = class.Grade
	}
	files, err := r.export(ctx, grades, findings, settings.GroupBy)
	if err != nil {
		return nil, err
	}
	progress.Set(100)

	r.logger.InfoContext(ctx, "journal check finished",
		slog.Int("classes", len(classes)),
		slog.Int("subjects", len(findings)),
		slog.Int("warnings", CountWarnings(findings)))
	return &domain.Result{Message: MsgCompleted, Files: files}, nil
}

type subjectScope struct {
	class    journal.ClassLink
	gradeID  string
	subject  journal.Subject
	years    []int
	settings config.AuditConfig
}

// checkSubject evaluates every term of one subject. ok is false when no
// term has a gradebook.
func (r *Runner) checkSubject(ctx context.Context, loader *journal.Loader, progress *operations.ProgressTracker,
	scope subjectScope, thresholds domain.ThresholdConfig) (domain.SubjectFindings, bool, error) {
	found := domain.SubjectFindings{Grade: scope.class.Grade, Subject: scope.subject.Name}

	for _, term := range journal.Terms(scope.class.Grade, scope.settings.TermFrom, scope.settings.TermTo) {
		progress.Status(fmt.Sprintf("%s %s %d четверть...", scope.class.Grade, scope.subject.Name, term))

		book, err := loader.Load(ctx, journal.Request{
			Grade:   scope.class.Grade,
			GradeID: scope.gradeID,
			Subject: scope.subject,
			Term:    term,
			Years:   scope.years,
			Light:   thresholds.OnlyTermMarks(),
		})
		if err != nil {
			return found, false, err
		}
		if book.Empty() {
			continue
		}
		if found.Teacher == "" {
			found.Teacher = book.Teacher
		}

		warns, stats := rules.Evaluate(rules.Input{
			Subject: scope.subject.Name,
			Lessons: book.Lessons,
			Rows:    book.Rows,
			Today:   r.now(),
		}, thresholds)
		for rule, n := range stats {
			r.metrics.RecordWarnings(ctx, rule, n)
		}
		found.Terms = append(found.Terms, domain.TermWarnings{Term: term, Warnings: warns})
	}
	return found, len(found.Terms) > 0, nil
}

func (r *Runner) export(ctx context.Context, grades []string, findings []domain.SubjectFindings, groupBy string) ([]string, error) {
	workbook := filepath.Join(r.outDir, exporter.CheckWorkbookName)
	var err error
	if groupBy == config.GroupByTeachers {
		err = exporter.WriteCheckByTeacher(workbook, ByTeacher(findings), r.logger)
	} else {
		err = exporter.WriteCheckByClass(workbook, ByClass(grades, findings), r.logger)
	}
	if err != nil {
		return nil, err
	}
	r.metrics.RecordWorkbook(ctx, exporter.CheckWorkbookName)

	flat := filepath.Join(r.outDir, exporter.FindingsCSVName)
	if err := exporter.WriteFindingsCSV(flat, findings, r.logger); err != nil {
		return nil, err
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, findings); err != nil {
			// the workbook is already written; a failed upload does not fail the run
			infrastructure.WithError(r.logger, err).WarnContext(ctx, "findings were not published")
		} else {
			infrastructure.AddSpanEvent(ctx, "findings.published", attribute.Int("subjects", len(findings)))
		}
	}
	return []string{workbook, flat}, nil
}
