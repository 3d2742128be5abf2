package apperror

import "net/http"

type AppError struct {
	Code      int      `json:"code"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
	Retryable bool     `json:"retryable,omitempty"`
	Err       error    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, message, nil)
}

// Validation reports the missing or invalid fields back to the caller.
func Validation(message string, fields []string) *AppError {
	e := New(http.StatusUnprocessableEntity, message, nil)
	e.Fields = fields
	return e
}

// ServiceUnavailable marks a transient failure the UI may offer to retry.
func ServiceUnavailable(message string, err error) *AppError {
	e := New(http.StatusServiceUnavailable, message, err)
	e.Retryable = true
	return e
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, "Internal Server Error", err)
}
