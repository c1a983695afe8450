package server

import (
	"errors"

	"github.com/gin-gonic/gin"

	"session-gate/auth"
	"session-gate/config"
	"session-gate/model"
)

// authenticate 在受保护路径上解析当前用户
// 缺少凭据返回 401，凭据无效返回 403
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.auth.Type == config.AuthNone || !auth.RequireAuth(c.Request.URL.Path, s.auth.ExcludedPaths) {
			c.Next()
			return
		}

		var (
			user *model.User
			err  error
		)
		if s.auth.Type == config.AuthBasic {
			header := c.GetHeader("Authorization")
			if header == "" {
				s.fail(c, errUnauthorized)
				return
			}
			user, err = s.basicUser(c, header)
		} else {
			token := s.sessionToken(c)
			if token == "" {
				s.fail(c, errUnauthorized)
				return
			}
			user, err = s.gateway.Resolve(c.Request.Context(), token)
			s.metrics.observeResolve(err)
		}
		if err != nil {
			if !isAuthFailure(err) {
				s.fail(c, err)
				return
			}
			s.fail(c, errForbidden)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// isAuthFailure 区分凭据无效与存储层故障
func isAuthFailure(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrExpired) ||
		errors.Is(err, auth.ErrNotFound) ||
		errors.Is(err, auth.ErrInvalidCredentials)
}

func (s *Server) basicUser(c *gin.Context, header string) (*model.User, error) {
	email, password, ok := auth.ParseBasic(header)
	if !ok {
		return nil, auth.ErrInvalidCredentials
	}
	return s.gateway.Authenticate(c.Request.Context(), email, password)
}

// currentUser 返回中间件解析出的用户，未启用认证时回退到会话 cookie
func (s *Server) currentUser(c *gin.Context) (*model.User, error) {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*model.User); ok {
			return u, nil
		}
	}
	return s.gateway.Resolve(c.Request.Context(), s.sessionToken(c))
}
