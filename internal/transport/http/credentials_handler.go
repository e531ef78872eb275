package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/internal/middleware"
	api "eduaudit/pkg/contracts/api/v1"
)

// CredentialService manages the stored portal login.
type CredentialService interface {
	Save(ctx context.Context, req api.CredentialsRequest) error
	Clear(ctx context.Context) error
	Status(ctx context.Context) (api.CredentialsResponse, error)
}

// CredentialsHandler handles /api/credentials.
type CredentialsHandler struct {
	service   CredentialService
	validator *middleware.Validator
	errors    *apperrors.ErrorHandler
	logger    *slog.Logger
}

// NewCredentialsHandler creates a credentials handler.
func NewCredentialsHandler(service CredentialService, validator *middleware.Validator, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *CredentialsHandler {
	return &CredentialsHandler{
		service:   service,
		validator: validator,
		errors:    errorHandler,
		logger:    infrastructure.WithComponent(logger, "credentials_handler"),
	}
}

// Routes returns a chi router for the credentials endpoints
func (h *CredentialsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Status)
	r.Put("/", h.Save)
	r.Delete("/", h.Clear)
	return r
}

// Status handles GET /api/credentials
func (h *CredentialsHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, status)
}

// Save handles PUT /api/credentials
func (h *CredentialsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req api.CredentialsRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	if err := h.service.Save(r.Context(), req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.CredentialsResponse{Stored: true, Login: req.Login})
}

// Clear handles DELETE /api/credentials
func (h *CredentialsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
