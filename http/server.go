// Package http 提供预测服务的HTTP接口
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cyberml/config"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewHandler 组装路由与中间件链
func NewHandler(cfg config.HTTPConfig, h *Handlers) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)

	chain := Chain(
		RecoveryMiddleware(h.logger),                                // 1. 恢复中间件（最外层，捕获panic）
		LoggerMiddleware(h.logger),                                  // 2. 日志中间件
		SecurityHeadersMiddleware,                                   // 3. 安全头中间件
		CORSMiddleware(cfg.AllowedOrigins),                          // 4. CORS中间件
		RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst), // 5. 限流中间件
		RequestSizeMiddleware(cfg.MaxBodyBytes),                     // 6. 请求大小限制
	)
	return chain(mux)
}

// NewServer 创建HTTP服务器
func NewServer(cfg config.HTTPConfig, h *Handlers) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           NewHandler(cfg, h),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		logger: h.logger,
	}
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 优雅停止服务器
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
