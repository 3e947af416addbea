package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error es un error HTTP del backend.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api: status %d: %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized indica un 401: sesión vencida o inválida.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// StatusCode devuelve el código HTTP de err o 0 si no es un *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
