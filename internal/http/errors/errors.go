package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/lifecycle"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// FromError traduce errores de dominio. Lo que no reconoce es un 500 que conserva la
// causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var ise *lifecycle.IllegalStateError
	var nf *bundle.NotFoundError
	var pe *bundle.ParseError
	switch {
	case errors.As(err, &ise):
		return ErrConflict.WithDetail(ise.Reason).WithCause(err)
	case errors.Is(err, lifecycle.ErrValidationRejected):
		return ErrValidationRejected.WithCause(err)
	case errors.As(err, &nf):
		return ErrNotFound.WithDetail("bundle not found at " + nf.Path).WithCause(err)
	case errors.Is(err, updatelog.ErrNoCandidate):
		return ErrNotFound.WithDetail("there is no candidate bundle").WithCause(err)
	case errors.As(err, &pe):
		return ErrBadRequest.WithDetail(pe.Error()).WithCause(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrServiceUnavailable.WithDetail("request cancelled").WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}

// WriteError escribe err como respuesta JSON.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
