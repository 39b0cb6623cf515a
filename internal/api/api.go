package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"indodax-market-sentry/internal/fetcher"
	"indodax-market-sentry/internal/metrics"
	"indodax-market-sentry/internal/scanner"
	"indodax-market-sentry/internal/scheduler"
	"indodax-market-sentry/internal/storage"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultInterval     = "1H"
	ServiceName         = "indodax-market-sentry"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	overviewSize        = 10
	cacheStatsTimeout   = 2 * time.Second
)

// JobLister 提供调度任务状态
type JobLister interface {
	Jobs() []scheduler.JobStatus
}

// CacheReporter 提供K线缓存状态
type CacheReporter interface {
	Stats(ctx context.Context) map[string]interface{}
}

// Server 面板HTTP接口
type Server struct {
	gateway     fetcher.Gateway
	interactive *scanner.Interactive
	state       *storage.SessionState
	jobs        JobLister
	hub         *Hub
	cache       CacheReporter
	pairs       []string

	httpServer *http.Server
}

// NewServer 创建面板服务
func NewServer(gw fetcher.Gateway, interactive *scanner.Interactive, state *storage.SessionState, jobs JobLister, hub *Hub, pairs []string) *Server {
	return &Server{
		gateway:     gw,
		interactive: interactive,
		state:       state,
		jobs:        jobs,
		hub:         hub,
		pairs:       append([]string(nil), pairs...),
	}
}

// WithCache 在健康检查中附带缓存状态
func (s *Server) WithCache(c CacheReporter) *Server {
	s.cache = c
	return s
}

// SetupRoutes 注册所有路由
func (s *Server) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(zapLoggerMiddleware())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/healthz", s.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/ws/alerts", gin.WrapF(s.hub.ServeWS))

	api := router.Group("/api")
	api.GET("/pairs", s.ListPairs)
	api.GET("/pairs/:pair/summary", s.GetSummary)
	api.GET("/pairs/:pair/signals", s.GetSignals)
	api.POST("/pairs/:pair/scan", s.ScanPair)
	api.GET("/signals/sent", s.SentSignals)
	api.POST("/signals/reset", s.ResetSignals)
	api.GET("/autoscan/results", s.AutoScanResults)
	api.GET("/jobs", s.Jobs)
	api.GET("/market/overview", s.MarketOverview)

	return router
}

// Start 在后台监听，地址为空时不启动
func (s *Server) Start(addr string) {
	if addr == "" {
		zap.L().Info("🔧 未配置监听地址，面板接口未启动")
		return
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("🌐 面板接口启动", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("❌ 面板接口异常退出", zap.Error(err))
		}
	}()
}

// Shutdown 关闭HTTP服务和所有WebSocket连接
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
