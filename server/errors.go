package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"session-gate/auth"
	apperrors "session-gate/pkg/errors"
)

var (
	errUnauthorized = apperrors.ErrUnauthorized
	errForbidden    = apperrors.ErrForbidden
)

// toAppError maps gateway errors onto HTTP responses.
func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, auth.ErrAlreadyExists):
		return apperrors.New(400, "email already registered", http.StatusBadRequest, err)
	case errors.Is(err, auth.ErrInvalidPassword):
		return apperrors.New(400, "password must be at most 72 bytes", http.StatusBadRequest, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.New(401, "wrong email or password", http.StatusUnauthorized, err)
	case errors.Is(err, auth.ErrNotFound):
		return apperrors.New(404, "Not found", http.StatusNotFound, err)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpired):
		return apperrors.New(403, "Forbidden", http.StatusForbidden, err)
	default:
		return apperrors.Wrap(err, "Internal server error")
	}
}

// fail aborts the request with the mapped error.
func (s *Server) fail(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(appErr.StatusCode, appErr)
}
