package errors

import (
	stderrors "errors"
	"net/http"
)

// AppError is the error shape returned by the HTTP layer.
type AppError struct {
	Code       int    `json:"code"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithMessage returns a copy of e carrying a different client-facing message.
func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

// Predefined errors
var (
	ErrUnauthorized = &AppError{
		Code:       401,
		Message:    "Unauthorized",
		StatusCode: http.StatusUnauthorized,
	}
	ErrForbidden = &AppError{
		Code:       403,
		Message:    "Forbidden",
		StatusCode: http.StatusForbidden,
	}
	ErrNotFound = &AppError{
		Code:       404,
		Message:    "Not found",
		StatusCode: http.StatusNotFound,
	}
	ErrBadRequest = &AppError{
		Code:       400,
		Message:    "Bad request",
		StatusCode: http.StatusBadRequest,
	}
	ErrInternalServer = &AppError{
		Code:       500,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

func New(code int, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       500,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// As reports whether err is (or wraps) an *AppError and returns it.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
