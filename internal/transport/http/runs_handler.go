package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/internal/middleware"
	api "eduaudit/pkg/contracts/api/v1"
	"eduaudit/pkg/contracts/domain"
)

// RunService starts runs and reports the latest one.
type RunService interface {
	StartCheck(ctx context.Context, req api.CheckRequest) (domain.RunSnapshot, error)
	StartReport(ctx context.Context, req api.ReportRequest) (domain.RunSnapshot, error)
	Current() (domain.RunSnapshot, bool)
}

// RunsHandler handles /api/runs.
type RunsHandler struct {
	service   RunService
	validator *middleware.Validator
	errors    *apperrors.ErrorHandler
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(service RunService, validator *middleware.Validator, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		service:   service,
		validator: validator,
		errors:    errorHandler,
		logger:    infrastructure.WithComponent(logger, "runs_handler"),
		tracer:    otel.Tracer(infrastructure.MeterName),
	}
}

// Routes returns a chi router for the runs endpoints
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/check", h.StartCheck)
	r.Post("/report", h.StartReport)
	r.Get("/current", h.Current)
	return r
}

// StartCheck handles POST /api/runs/check
func (h *RunsHandler) StartCheck(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "runs_handler.start_check")
	defer span.End()

	var req api.CheckRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	snapshot, err := h.service.StartCheck(ctx, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errors.HandleError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("run.id", snapshot.RunID))
	h.accepted(w, r, snapshot)
}

// StartReport handles POST /api/runs/report
func (h *RunsHandler) StartReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "runs_handler.start_report")
	defer span.End()

	var req api.ReportRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	snapshot, err := h.service.StartReport(ctx, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errors.HandleError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("run.id", snapshot.RunID))
	h.accepted(w, r, snapshot)
}

// Current handles GET /api/runs/current
func (h *RunsHandler) Current(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.service.Current()
	if !ok {
		h.errors.NotFound(w, r)
		return
	}
	render.JSON(w, r, api.RunResponse{Run: snapshot})
}

func (h *RunsHandler) accepted(w http.ResponseWriter, r *http.Request, snapshot domain.RunSnapshot) {
	h.logger.InfoContext(r.Context(), "run accepted",
		slog.String("run_id", snapshot.RunID),
		slog.String("kind", string(snapshot.Kind)),
		slog.String("request_id", middleware.GetRequestID(r.Context())))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.RunResponse{Run: snapshot})
}
