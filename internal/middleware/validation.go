package middleware

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "eduaudit/internal/errors"
)

const maxBodySize = 64 * 1024

// Validator decodes JSON request bodies and checks their struct tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator reporting JSON field names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Decode reads the body of r into dst and validates it. An empty body
// leaves dst untouched before validation.
func (v *Validator) Decode(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodySize)
	if err := render.DecodeJSON(r.Body, dst); err != nil && err != io.EOF {
		return apperrors.NewAppValidationError("Некорректный JSON в теле запроса").
			WithContext("cause", err.Error())
	}
	return v.Struct(dst)
}

// Struct validates a decoded value.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewAppValidationError(err.Error())
	}
	messages := make([]string, 0, len(fieldErrs))
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := formatFieldError(fe)
		messages = append(messages, msg)
		fields[fe.Field()] = msg
	}
	return apperrors.NewAppValidationError(strings.Join(messages, "; ")).
		WithContext("fields", fields)
}

func formatFieldError(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
