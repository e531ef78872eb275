package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/exporter"
	"eduaudit/internal/infrastructure"
	"eduaudit/internal/journal"
	"eduaudit/internal/operations"
	"eduaudit/internal/portal"
	"eduaudit/internal/quality"
	"eduaudit/pkg/contracts/domain"
)

// Status lines shown while the reports are built.
const (
	StatusLoggingIn   = "Входим в аккаунт..."
	StatusLoggedIn    = "Успешный вход в аккаунт"
	StatusCollecting  = "Сбор нужных данных..."
	StatusOverall     = "Результативность работы школы за уч. период"
	StatusSubjects    = "Результативность работы школы (по предм.) за уч. период"
	StatusStudents    = "Отчеты кл. руководителей за уч. период"
	StatusLowAverages = "Ученики со средним баллом <3"
	StatusDone        = "Завершено!"

	MsgCompleted = "Отчеты составлены. Их вы найдете в Excel-файлах в папке приложения."
)

// lastGrade is the oldest class searched for low averages.
const lastGrade = 11

// Gate decides whether login may build reports.
type Gate interface {
	Check(ctx context.Context, login string) error
}

// Params are the inputs of one report run.
type Params struct {
	Login    string
	Password string
	Report   config.ReportConfig
}

// Validate rejects runs that cannot start.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Login) == "" || p.Password == "" {
		return apperrors.NewConfigError(apperrors.MsgMissingCredentials, nil)
	}
	if p.Report.Term < 1 || p.Report.Term > 4 {
		return apperrors.NewConfigError(fmt.Sprintf("report term must be 1-4, got %d", p.Report.Term), nil)
	}
	if p.Report.StartGrade < 1 || p.Report.StartGrade > lastGrade {
		return apperrors.NewConfigError(fmt.Sprintf("start grade must be 1-11, got %d", p.Report.StartGrade), nil)
	}
	return nil
}

// Runner builds the four summary workbooks of a reporting period.
type Runner struct {
	dial    portal.Dialer
	gate    Gate
	outDir  string
	logger  *slog.Logger
	metrics *infrastructure.DomainMetrics
	now     func() time.Time
}

// NewRunner creates a runner writing its workbooks to outDir. gate may be
// nil when the reports are not restricted.
func NewRunner(dial portal.Dialer, gate Gate, outDir string, logger *slog.Logger, metrics *infrastructure.DomainMetrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		dial:    dial,
		gate:    gate,
		outDir:  outDir,
		logger:  infrastructure.WithComponent(logger, "report"),
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock replaces the clock used when reading gradebooks.
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

// builder holds what the report stages share.
type builder struct {
	school     *School
	loader     *journal.Loader
	fetcher    Fetcher
	years      []int
	firstYear  int
	term       int
	startGrade int
}

type stage struct {
	status   string
	percent  float64
	workbook string
	build    func(context.Context) ([]exporter.ReportSheet, error)
}

// Run builds every report. Workbooks are written only when all of them
// were built.
func (r *Runner) Run(ctx context.Context, params Params, sink operations.ProgressSink) (*domain.Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if r.gate != nil {
		if err := r.gate.Check(ctx, params.Login); err != nil {
			return nil, err
		}
	}

	progress := operations.NewProgressTracker(sink)
	progress.Status(StatusLoggingIn)

	client, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.Login(ctx, params.Login, params.Password); err != nil {
		return nil, err
	}
	progress.Status(StatusLoggedIn)
	progress.Status(StatusCollecting)

	school, err := Discover(ctx, client, client.BaseURL(), r.logger)
	if err != nil {
		return nil, err
	}
	loader := journal.NewLoader(client, client.BaseURL(), r.logger).WithClock(r.now)
	years, err := loader.Years(ctx)
	if err != nil {
		return nil, err
	}

	b := &builder{
		school:     school,
		loader:     loader,
		fetcher:    client,
		years:      years,
		firstYear:  years[0],
		term:       params.Report.Term,
		startGrade: params.Report.StartGrade,
	}

	stages := []stage{
		{StatusOverall, 25, exporter.OverallWorkbookName, b.overallSheets},
		{StatusSubjects, 50, exporter.SubjectsWorkbookName, b.subjectsSheets},
		{StatusStudents, 75, exporter.StudentsWorkbookName, b.studentsSheets},
		{StatusLowAverages, 100, exporter.LowAverageWorkbookName, func(ctx context.Context) ([]exporter.ReportSheet, error) {
			rows, err := b.lowAverages(ctx, progress)
			if err != nil {
				return nil, err
			}
			return exporter.LowAverageSheets(rows), nil
		}},
	}

	built := make([][]exporter.ReportSheet, len(stages))
	for i, st := range stages {
		progress.Status(st.status)
		sheets, err := st.build(ctx)
		if err != nil {
			return nil, err
		}
		built[i] = sheets
		if i < len(stages)-1 {
			progress.Set(st.percent)
		}
	}

	files := make([]string, 0, len(stages))
	for i, st := range stages {
		path := filepath.Join(r.outDir, st.workbook)
		if err := exporter.WriteReport(path, built[i], r.logger); err != nil {
			return nil, err
		}
		r.metrics.RecordWorkbook(ctx, st.workbook)
		files = append(files, path)
	}
	progress.Set(100)
	progress.Status(StatusDone)

	r.logger.InfoContext(ctx, "reports built",
		slog.Int("term", b.term),
		slog.Int("start_grade", b.startGrade),
		slog.Int("workbooks", len(files)))
	return &domain.Result{Message: MsgCompleted, Files: files}, nil
}

// lowAverages lists the students whose journal average is below three in
// any subject. Half-year classes have no marks at odd quarters and are
// skipped then.
func (b *builder) lowAverages(ctx context.Context, progress *operations.ProgressTracker) ([]quality.LowAverage, error) {
	classes, err := b.loader.Classes(ctx, b.startGrade, lastGrade)
	if err != nil {
		return nil, err
	}

	var rows []quality.LowAverage
	for _, class := range classes {
		term := b.term
		if journal.IsSenior(class.Grade) {
			if b.term%2 == 1 {
				continue
			}
			term = b.term / 2
		}

		gradeID, subjects, err := b.loader.Subjects(ctx, class)
		if err != nil {
			return nil, err
		}
		for _, subject := range subjects {
			progress.Status(fmt.Sprintf("%s %s...", class.Grade, subject.Name))
			book, err := b.loader.Load(ctx, journal.Request{
				Grade:   class.Grade,
				GradeID: gradeID,
				Subject: subject,
				Term:    term,
				Years:   b.years,
				Light:   true,
			})
			if err != nil {
				return nil, err
			}
			if book.Empty() {
				continue
			}
			rows = append(rows, quality.LowAverages(class.Grade, subject.Name, book.Teacher, book.Rows)...)
		}
	}
	return rows, nil
}
