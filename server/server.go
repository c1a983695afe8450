package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zishang520/socket.io/socket"
	"go.uber.org/zap"

	"session-gate/auth"
	"session-gate/config"
)

// Server 是应用程序的 HTTP 与 Socket.IO 入口
type Server struct {
	router       *gin.Engine
	socketServer *socket.Server
	gateway      *auth.Gateway
	auth         config.AuthConfig
	registry     *prometheus.Registry
	metrics      *Metrics
	log          *zap.Logger

	// socketAuth 存储 socket 连接的认证状态，key: socket.SocketId
	socketAuth sync.Map
}

// NewServer 创建并初始化一个新的服务器实例
func NewServer(gateway *auth.Gateway, cfg config.AuthConfig, log *zap.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		router:       gin.New(),
		socketServer: socket.NewServer(nil, nil),
		gateway:      gateway,
		auth:         cfg,
		registry:     registry,
		metrics:      NewMetrics(registry),
		log:          log,
	}

	s.router.Use(gin.Recovery(), requestLogger(log))

	// 配置 CORS
	s.router.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 健康检查端点
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "auth": s.auth.Type})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	s.registerAPIRoutes()
	s.registerSocketRoutes()

	return s
}

// registerAPIRoutes 注册 REST API 路由
func (s *Server) registerAPIRoutes() {
	api := s.router.Group("/api/v1")
	api.Use(s.authenticate())
	{
		api.GET("/status", s.status)
		api.GET("/unauthorized", func(c *gin.Context) { s.fail(c, errUnauthorized) })
		api.GET("/forbidden", func(c *gin.Context) { s.fail(c, errForbidden) })

		api.POST("/users", s.register)
		api.GET("/users/me", s.me)

		api.POST("/auth_session/login", s.login)
		api.DELETE("/auth_session/logout", s.logout)

		api.POST("/reset_password", s.requestReset)
		api.PUT("/reset_password", s.completeReset)
	}
}

// registerSocketRoutes 注册 Socket.IO 相关的路由
func (s *Server) registerSocketRoutes() {
	handler := s.socketServer.ServeHandler(nil)
	s.router.GET("/socket.io/*any", gin.WrapH(handler))
	s.router.POST("/socket.io/*any", gin.WrapH(handler))

	s.socketServer.On("connection", func(args ...any) {
		client := args[0].(*socket.Socket)
		s.setupAuthHandlers(client)
	})
}

// Router 返回 Gin 引擎实例
func (s *Server) Router() *gin.Engine {
	return s.router
}

// requestLogger 记录每个请求的方法、路径、状态码和耗时
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
