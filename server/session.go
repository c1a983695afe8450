package server

import (
	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

// socketSession 是已认证 socket 连接保存的状态
type socketSession struct {
	UserID string
	Token  string
}

// sessionToken 读取会话 cookie
func (s *Server) sessionToken(c *gin.Context) string {
	token, err := c.Cookie(s.auth.SessionName)
	if err != nil {
		return ""
	}
	return token
}

// setSessionCookie 写入会话 cookie，过期时间与会话时长一致
func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(s.auth.SessionName, token, s.auth.SessionDuration, "/", "", c.Request.TLS != nil, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetCookie(s.auth.SessionName, "", -1, "/", "", c.Request.TLS != nil, true)
}
