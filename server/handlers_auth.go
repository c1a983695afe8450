package server

import (
	"context"

	"github.com/zishang520/socket.io/socket"
	"go.uber.org/zap"
)

// setupAuthHandlers 设置认证相关的 Socket.IO 事件处理器
func (s *Server) setupAuthHandlers(client *socket.Socket) {
	// Handle "login"
	client.On("login", func(args ...any) {
		data, err := getArgAsMap(args, 0)
		if err != nil {
			s.log.Warn("login: invalid data format", zap.String("client", string(client.Id())))
			return
		}
		email := safeMapGetString(data, "email")
		password := safeMapGetString(data, "password")

		token, user, err := s.gateway.Login(context.Background(), email, password)
		s.metrics.Logins.WithLabelValues(resultLabel(err)).Inc()
		if err != nil {
			reply(args, map[string]any{
				"ok":  false,
				"msg": "Invalid email or password",
			})
			return
		}

		s.socketAuth.Store(client.Id(), socketSession{UserID: user.ID, Token: token})
		reply(args, map[string]any{
			"ok":    true,
			"token": token,
		})
	})

	// Handle "auth" for token-based session recovery
	client.On("auth", func(args ...any) {
		data, err := getArgAsMap(args, 0)
		if err != nil {
			return
		}
		token := safeMapGetString(data, "token")

		user, err := s.gateway.Resolve(context.Background(), token)
		s.metrics.observeResolve(err)
		if err != nil {
			reply(args, map[string]any{
				"ok":  false,
				"msg": "Invalid or expired token",
			})
			return
		}

		s.socketAuth.Store(client.Id(), socketSession{UserID: user.ID, Token: token})
		reply(args, map[string]any{"ok": true})
	})

	// Handle "logout"
	client.On("logout", func(args ...any) {
		if val, ok := s.socketAuth.LoadAndDelete(client.Id()); ok {
			if sess, ok := val.(socketSession); ok {
				destroyed := s.gateway.Logout(context.Background(), sess.Token)
				if destroyed {
					s.metrics.Logouts.WithLabelValues("ok").Inc()
				} else {
					s.metrics.Logouts.WithLabelValues("noop").Inc()
				}
			}
		}
		reply(args, map[string]any{"ok": true})
	})

	// Handle "me"
	s.requireAuth(client, "me", func(sess socketSession, args ...any) {
		user, err := s.gateway.Resolve(context.Background(), sess.Token)
		if err != nil {
			s.socketAuth.Delete(client.Id())
			client.Emit("error", map[string]any{"code": 401, "msg": "Unauthorized"})
			return
		}
		reply(args, map[string]any{"ok": true, "user": user})
	})

	client.On("disconnect", func(...any) {
		s.socketAuth.Delete(client.Id())
	})
}

// requireAuth 创建一个需要认证的事件处理器包装器
func (s *Server) requireAuth(client *socket.Socket, eventName string, handler func(sess socketSession, args ...any)) {
	client.On(eventName, func(args ...any) {
		if val, ok := s.socketAuth.Load(client.Id()); ok {
			if sess, ok := val.(socketSession); ok {
				handler(sess, args...)
				return
			}
		}

		client.Emit("error", map[string]any{
			"code": 401,
			"msg":  "Unauthorized",
		})
	})
}
