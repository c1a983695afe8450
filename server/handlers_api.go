package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"session-gate/auth"
	apperrors "session-gate/pkg/errors"
)

// status GET /api/v1/status
func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// register POST /api/v1/users
func (s *Server) register(c *gin.Context) {
	email, password, ok := s.credentials(c)
	if !ok {
		return
	}
	if _, err := s.gateway.Register(c.Request.Context(), email, password); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "message": "user created"})
}

// login POST /api/v1/auth_session/login
func (s *Server) login(c *gin.Context) {
	email, password, ok := s.credentials(c)
	if !ok {
		return
	}
	token, user, err := s.gateway.Login(c.Request.Context(), email, password)
	s.metrics.Logins.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setSessionCookie(c, token)
	c.JSON(http.StatusOK, user)
}

// logout DELETE /api/v1/auth_session/logout
func (s *Server) logout(c *gin.Context) {
	destroyed := s.gateway.Logout(c.Request.Context(), s.sessionToken(c))
	if !destroyed {
		s.metrics.Logouts.WithLabelValues("noop").Inc()
		s.fail(c, apperrors.ErrNotFound)
		return
	}
	s.metrics.Logouts.WithLabelValues("ok").Inc()
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{})
}

// me GET /api/v1/users/me
func (s *Server) me(c *gin.Context) {
	user, err := s.currentUser(c)
	if err != nil {
		s.fail(c, errForbidden)
		return
	}
	c.JSON(http.StatusOK, user)
}

// requestReset POST /api/v1/reset_password
func (s *Server) requestReset(c *gin.Context) {
	email := c.PostForm("email")
	if email == "" {
		s.fail(c, apperrors.ErrBadRequest.WithMessage("email missing"))
		return
	}
	token, err := s.gateway.RequestPasswordReset(c.Request.Context(), email)
	s.metrics.Resets.WithLabelValues("request", resultLabel(err)).Inc()
	if err != nil {
		// 未注册的邮箱统一返回 403
		s.fail(c, forbiddenOn(err, auth.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "reset_token": token})
}

// completeReset PUT /api/v1/reset_password
func (s *Server) completeReset(c *gin.Context) {
	email := c.PostForm("email")
	resetToken := c.PostForm("reset_token")
	newPassword := c.PostForm("new_password")
	if resetToken == "" || newPassword == "" {
		s.fail(c, apperrors.ErrBadRequest.WithMessage("reset_token and new_password are required"))
		return
	}
	err := s.gateway.CompletePasswordReset(c.Request.Context(), resetToken, newPassword)
	s.metrics.Resets.WithLabelValues("complete", resultLabel(err)).Inc()
	if err != nil {
		s.fail(c, forbiddenOn(err, auth.ErrInvalidToken))
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "message": "Password updated"})
}

// credentials 读取表单中的 email 与 password，缺失时直接返回 400
func (s *Server) credentials(c *gin.Context) (email, password string, ok bool) {
	email = c.PostForm("email")
	if email == "" {
		s.fail(c, apperrors.ErrBadRequest.WithMessage("email missing"))
		return "", "", false
	}
	password = c.PostForm("password")
	if password == "" {
		s.fail(c, apperrors.ErrBadRequest.WithMessage("password missing"))
		return "", "", false
	}
	return email, password, true
}

func forbiddenOn(err, target error) error {
	if errors.Is(err, target) {
		return apperrors.New(403, "Forbidden", http.StatusForbidden, err)
	}
	return err
}
