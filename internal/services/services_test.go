package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduaudit/internal/audit"
	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/operations"
	"eduaudit/internal/report"
	"eduaudit/internal/security"
	api "eduaudit/pkg/contracts/api/v1"
	"eduaudit/pkg/contracts/domain"
)

type fakeResolver struct {
	stored security.Credentials
}

func (f fakeResolver) Resolve(_ context.Context, login, password string) (security.Credentials, error) {
	if login == "" {
		login = f.stored.Login
	}
	if password == "" {
		password = f.stored.Password
	}
	if login == "" || password == "" {
		return security.Credentials{}, apperrors.NewConfigError(apperrors.MsgMissingCredentials, nil)
	}
	return security.Credentials{Login: login, Password: password}, nil
}

type fakeAuditor struct {
	mu     sync.Mutex
	params []audit.Params
}

func (f *fakeAuditor) Task(params audit.Params) operations.Task {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	return func(ctx context.Context, sink operations.ProgressSink) (*domain.Result, error) {
		sink.Progress(100)
		return &domain.Result{Message: "done", Files: []string{"check.xlsx"}}, nil
	}
}

type fakeReporter struct {
	params  []report.Params
	release chan struct{}
}

func (f *fakeReporter) Task(params report.Params) operations.Task {
	f.params = append(f.params, params)
	return func(ctx context.Context, sink operations.ProgressSink) (*domain.Result, error) {
		if f.release != nil {
			<-f.release
		}
		return &domain.Result{Message: "reports"}, nil
	}
}

func newTestService(t *testing.T, creds fakeResolver) (*RunService, *fakeAuditor, *fakeReporter, *operations.Runner) {
	t.Helper()
	status := operations.NewStatusBroadcaster(nil, nil)
	t.Cleanup(status.Stop)
	runner := operations.NewRunner(status, nil, nil)
	auditor, reporter := &fakeAuditor{}, &fakeReporter{}
	svc := NewRunService(config.Default(), creds, runner, auditor, reporter, nil)
	return svc, auditor, reporter, runner
}

func boolPtr(b bool) *bool { return &b }

func TestRunService_RunCheck(t *testing.T) {
	svc, auditor, _, _ := newTestService(t, fakeResolver{stored: security.Credentials{Login: "director", Password: "secret"}})

	result, err := svc.RunCheck(context.Background(), api.CheckRequest{
		ClassFrom:      7,
		ClassTo:        5,
		CheckDoubleTwo: boolPtr(true),
		GroupBy:        config.GroupByTeachers,
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Message)

	require.Len(t, auditor.params, 1)
	got := auditor.params[0]
	assert.Equal(t, "director", got.Login)
	assert.Equal(t, "secret", got.Password)
	assert.Equal(t, 7, got.Audit.ClassFrom)
	assert.True(t, got.Audit.CheckDoubleTwo)
	assert.Equal(t, config.GroupByTeachers, got.Audit.GroupBy)
	assert.Equal(t, 4.5, got.Audit.MinFor5, "unset fields keep the configured defaults")

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, domain.RunStatusCompleted, current.Status)
	assert.Equal(t, []string{"check.xlsx"}, current.Outputs)
}

func TestRunService_Preflight(t *testing.T) {
	tests := []struct {
		name    string
		creds   fakeResolver
		req     api.CheckRequest
		wantMsg string
	}{
		{
			name:    "no credentials anywhere",
			req:     api.CheckRequest{CheckMeta: boolPtr(true)},
			wantMsg: apperrors.MsgMissingCredentials,
		},
		{
			name:    "no checks selected",
			creds:   fakeResolver{stored: security.Credentials{Login: "director", Password: "secret"}},
			req:     api.CheckRequest{},
			wantMsg: apperrors.MsgNoChecksSelected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, auditor, _, _ := newTestService(t, tt.creds)
			_, err := svc.StartCheck(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
			assert.Equal(t, tt.wantMsg, apperrors.UserMessage(err))
			assert.Empty(t, auditor.params)

			_, ok := svc.Current()
			assert.False(t, ok, "a rejected request creates no run")
		})
	}
}

func TestRunService_StartReportConflicts(t *testing.T) {
	svc, _, reporter, runner := newTestService(t, fakeResolver{})
	reporter.release = make(chan struct{})

	req := api.ReportRequest{Login: "director", Password: "secret", Term: 2}
	snapshot, err := svc.StartReport(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.RunKindReport, snapshot.Kind)
	assert.Equal(t, 2, reporter.params[0].Report.Term)
	assert.Equal(t, 5, reporter.params[0].Report.StartGrade)

	_, err = svc.StartReport(context.Background(), req)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))

	close(reporter.release)
	runner.Wait()
	assert.Eventually(t, func() bool {
		current, _ := svc.Current()
		return current.Status == domain.RunStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCredentialService(t *testing.T) {
	ctx := context.Background()
	store, err := security.NewCredentialStore(filepath.Join(t.TempDir(), "credentials.json"), "test-application-salt-16-bytes", nil)
	require.NoError(t, err)
	cfg := security.DefaultEncryptionConfig()
	cfg.SCryptN = 1024
	svc := NewCredentialService(store.WithEncryptionConfig(cfg), nil)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Stored)

	require.NoError(t, svc.Save(ctx, api.CredentialsRequest{Login: "director", Password: "secret"}))
	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.CredentialsResponse{Stored: true, Login: "director"}, status)

	require.NoError(t, svc.Clear(ctx))
	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Stored)
}

type staticHub map[string]interface{}

func (h staticHub) Stats() map[string]interface{} { return h }

type enabledGate bool

func (g enabledGate) Enabled() bool { return bool(g) }

func TestHealthService(t *testing.T) {
	svc, _, _, _ := newTestService(t, fakeResolver{stored: security.Credentials{Login: "director", Password: "secret"}})
	_, err := svc.RunCheck(context.Background(), api.CheckRequest{CheckMeta: boolPtr(true)})
	require.NoError(t, err)

	health := NewHealthService(staticHub{"active_clients": 2}, svc, enabledGate(true))
	status := health.HealthCheck(context.Background())

	assert.Equal(t, "ok", status.Status)
	assert.NotEmpty(t, status.Version.Version)
	assert.Equal(t, staticHub{"active_clients": 2}, status.Services["websocket"])
	run := status.Services["run"].(map[string]interface{})
	assert.Equal(t, domain.RunStatusCompleted, run["status"])
	assert.Equal(t, map[string]bool{"enabled": true}, status.Services["feature_gate"])
}
