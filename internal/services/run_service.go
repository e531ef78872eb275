package services

import (
	"context"
	"log/slog"

	"eduaudit/internal/audit"
	"eduaudit/internal/config"
	"eduaudit/internal/infrastructure"
	"eduaudit/internal/operations"
	"eduaudit/internal/report"
	"eduaudit/internal/security"
	api "eduaudit/pkg/contracts/api/v1"
	"eduaudit/pkg/contracts/domain"
)

// CredentialResolver fills in the portal login.
type CredentialResolver interface {
	Resolve(ctx context.Context, login, password string) (security.Credentials, error)
}

// Auditor builds journal check tasks.
type Auditor interface {
	Task(params audit.Params) operations.Task
}

// Reporter builds summary report tasks.
type Reporter interface {
	Task(params report.Params) operations.Task
}

// RunService starts runs from API requests.
type RunService struct {
	audit    config.AuditConfig
	report   config.ReportConfig
	creds    CredentialResolver
	runner   *operations.Runner
	auditor  Auditor
	reporter Reporter
	logger   *slog.Logger
}

// NewRunService creates a run service. cfg supplies the defaults for
// fields a request leaves empty.
func NewRunService(cfg *config.Config, creds CredentialResolver, runner *operations.Runner, auditor Auditor, reporter Reporter, logger *slog.Logger) *RunService {
	return &RunService{
		audit:    cfg.Audit,
		report:   cfg.Report,
		creds:    creds,
		runner:   runner,
		auditor:  auditor,
		reporter: reporter,
		logger:   infrastructure.WithComponent(logger, "run_service"),
	}
}

func (s *RunService) checkParams(ctx context.Context, req api.CheckRequest) (audit.Params, error) {
	creds, err := s.creds.Resolve(ctx, req.Login, req.Password)
	if err != nil {
		return audit.Params{}, err
	}
	params := audit.Params{Login: creds.Login, Password: creds.Password, Audit: req.Apply(s.audit)}
	return params, params.Validate()
}

func (s *RunService) reportParams(ctx context.Context, req api.ReportRequest) (report.Params, error) {
	creds, err := s.creds.Resolve(ctx, req.Login, req.Password)
	if err != nil {
		return report.Params{}, err
	}
	params := report.Params{Login: creds.Login, Password: creds.Password, Report: req.Apply(s.report)}
	return params, params.Validate()
}

// StartCheck validates req and starts a journal check in the background.
func (s *RunService) StartCheck(ctx context.Context, req api.CheckRequest) (domain.RunSnapshot, error) {
	params, err := s.checkParams(ctx, req)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	snapshot, err := s.runner.Start(domain.RunKindCheck, s.auditor.Task(params))
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	s.logger.InfoContext(ctx, "journal check started",
		slog.String("run_id", snapshot.RunID),
		slog.Int("class_from", params.Audit.ClassFrom),
		slog.Int("class_to", params.Audit.ClassTo))
	return snapshot, nil
}

// RunCheck runs a journal check in the calling goroutine.
func (s *RunService) RunCheck(ctx context.Context, req api.CheckRequest) (*domain.Result, error) {
	params, err := s.checkParams(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.runner.Run(ctx, domain.RunKindCheck, s.auditor.Task(params))
}

// StartReport validates req and starts the summary reports in the
// background.
func (s *RunService) StartReport(ctx context.Context, req api.ReportRequest) (domain.RunSnapshot, error) {
	params, err := s.reportParams(ctx, req)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	snapshot, err := s.runner.Start(domain.RunKindReport, s.reporter.Task(params))
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	s.logger.InfoContext(ctx, "summary reports started",
		slog.String("run_id", snapshot.RunID),
		slog.Int("term", params.Report.Term))
	return snapshot, nil
}

// RunReport builds the summary reports in the calling goroutine.
func (s *RunService) RunReport(ctx context.Context, req api.ReportRequest) (*domain.Result, error) {
	params, err := s.reportParams(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.runner.Run(ctx, domain.RunKindReport, s.reporter.Task(params))
}

// Current returns the latest run.
func (s *RunService) Current() (domain.RunSnapshot, bool) {
	return s.runner.Current()
}
