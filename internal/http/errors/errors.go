// Package errors define el AppError que devuelve el router HTTP y su
// serialización JSON.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/meshconsole/internal/api"
)

// AppError es la forma estándar de un error HTTP del servicio.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithDetail devuelve una copia; los errores predefinidos no se mutan.
func (e *AppError) WithDetail(detail string) *AppError {
	out := *e
	out.Detail = detail
	return &out
}

// WithCause devuelve una copia con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	out := *e
	out.Err = err
	return &out
}

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene parámetros inválidos o faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrInvalidParameter = &AppError{
		Code:       "INVALID_PARAMETER",
		Message:    "Uno de los parámetros de la URL o Query String es inválido.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrSessionExpired = &AppError{
		Code:       "SESSION_EXPIRED",
		Message:    "La sesión ha expirado, por favor inicie sesión nuevamente.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}
	ErrBadGateway = &AppError{
		Code:       "BAD_GATEWAY",
		Message:    "El backend respondió con un error.",
		HTTPStatus: http.StatusBadGateway,
	}
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error interno.",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// FromError convierte err en AppError. Los *api.Error del backend se
// mapean por status; el resto es 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch code := api.StatusCode(err); {
	case code == http.StatusUnauthorized:
		return ErrSessionExpired.WithCause(err)
	case code == http.StatusNotFound:
		return ErrNotFound.WithCause(err)
	case code >= 400:
		return ErrBadGateway.WithCause(err).WithDetail(fmt.Sprintf("backend status %d", code))
	}
	return ErrInternalServerError.WithCause(err)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError serializa err como JSON con su HTTPStatus.
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
