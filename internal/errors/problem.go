package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// Problem types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
	TypeUnauthorized     = "/errors/unauthorized"
	TypeForbidden        = "/errors/forbidden"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
	TypeConflict         = "/errors/conflict"
	TypeBadGateway       = "/errors/upstream"
	TypeRunInProgress    = "/errors/run/already-running"
	TypeFeatureLocked    = "/errors/feature/locked"
	TypePortalChanged    = "/errors/portal/format"
	TypeConfiguration    = "/errors/configuration"
	TypeStorageFailure   = "/errors/storage"
)

// ProblemDetails is an RFC 7807 error body
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the top level object
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		data[k] = v
	}
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// StatusFor maps an error type to an HTTP status code.
func StatusFor(errType ErrorType) (int, string) {
	switch errType {
	case ErrTypeAuth:
		return http.StatusUnauthorized, TypeUnauthorized
	case ErrTypeNetwork:
		return http.StatusBadGateway, TypeBadGateway
	case ErrTypeUpstreamFormat:
		return http.StatusBadGateway, TypePortalChanged
	case ErrTypeConfig:
		return http.StatusBadRequest, TypeConfiguration
	case ErrTypeValidation:
		return http.StatusBadRequest, TypeValidation
	case ErrTypeFeatureLocked:
		return http.StatusForbidden, TypeFeatureLocked
	case ErrTypeConflict:
		return http.StatusConflict, TypeRunInProgress
	case ErrTypeStorage:
		return http.StatusInternalServerError, TypeStorageFailure
	default:
		return http.StatusInternalServerError, TypeInternal
	}
}
