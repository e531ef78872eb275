package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/pkg/contracts/domain"
)

// FinishHook is called after a run reaches a terminal state.
type FinishHook func(ctx context.Context, snapshot domain.RunSnapshot)

// Runner executes at most one task at a time. A started task runs to the
// end; there is no cancellation.
type Runner struct {
	mu      sync.Mutex
	active  string
	wg      sync.WaitGroup
	hooks   []FinishHook
	status  *StatusBroadcaster
	logger  *slog.Logger
	metrics *infrastructure.DomainMetrics
	tracer  trace.Tracer
}

// NewRunner creates a runner publishing its state through status.
func NewRunner(status *StatusBroadcaster, logger *slog.Logger, metrics *infrastructure.DomainMetrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		status:  status,
		logger:  infrastructure.WithComponent(logger, "runner"),
		metrics: metrics,
		tracer:  otel.Tracer(infrastructure.MeterName),
	}
}

// OnFinish registers a hook called after every run.
func (r *Runner) OnFinish(hook FinishHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

func (r *Runner) acquire(kind domain.RunKind) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != "" {
		return "", apperrors.NewConflictError(apperrors.MsgRunInProgress).
			WithContext("run_id", r.active)
	}
	r.active = uuid.New().String()
	r.status.CreateRun(r.active, kind)
	return r.active, nil
}

func (r *Runner) release() []FinishHook {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = ""
	return append([]FinishHook(nil), r.hooks...)
}

// Start launches task in the background and returns the pending snapshot.
// A second start while a run is active fails with CONFLICT.
func (r *Runner) Start(kind domain.RunKind, task Task) (domain.RunSnapshot, error) {
	runID, err := r.acquire(kind)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	snapshot, _ := r.status.GetSnapshot(runID)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx := infrastructure.WithTraceID(context.Background(), runID)
		_, _ = r.execute(ctx, runID, kind, task)
	}()
	return snapshot, nil
}

// Run executes task in the calling goroutine, reporting to the same status
// as background runs.
func (r *Runner) Run(ctx context.Context, kind domain.RunKind, task Task) (*domain.Result, error) {
	runID, err := r.acquire(kind)
	if err != nil {
		return nil, err
	}
	return r.execute(infrastructure.WithTraceID(ctx, runID), runID, kind, task)
}

// Wait blocks until background runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Current returns the state of the latest run.
func (r *Runner) Current() (domain.RunSnapshot, bool) {
	return r.status.Latest()
}

func (r *Runner) execute(ctx context.Context, runID string, kind domain.RunKind, task Task) (result *domain.Result, err error) {
	ctx, span := r.tracer.Start(ctx, "run."+string(kind),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.kind", string(kind)),
		))
	defer span.End()

	logger := r.logger.With(slog.String("run_id", runID), slog.String("kind", string(kind)))
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("run panicked", slog.Any("panic", p))
			result, err = nil, apperrors.NewAppError(apperrors.ErrTypeInternal, "run panicked", nil).
				WithContext("panic", p)
		}

		duration := time.Since(start)
		r.metrics.RecordRun(ctx, string(kind), duration, err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			infrastructure.WithError(logger, err).Error("Run failed", slog.Duration("duration", duration))
			r.status.FailRun(runID, err, apperrors.UserMessage(err))
		} else {
			logger.Info("Run completed", slog.Duration("duration", duration))
			r.status.CompleteRun(runID, result)
		}

		snapshot, _ := r.status.GetSnapshot(runID)
		for _, hook := range r.release() {
			hook(ctx, snapshot)
		}
	}()

	logger.Info("Run started")
	r.status.StartRun(runID)
	sink := SinkFunc{
		OnProgress: func(p int) { r.status.SetProgress(runID, p) },
		OnStatus:   func(m string) { r.status.SetMessage(runID, m) },
	}
	return task(ctx, sink)
}
