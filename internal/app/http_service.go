package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dujiao-next/tableside/internal/config"
	"github.com/dujiao-next/tableside/internal/logger"
)

const httpReadHeaderTimeout = 10 * time.Second

// HTTPService HTTP 服务封装
// 不设置 WriteTimeout，/api/v1/ws 长连接依赖心跳维持
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	idle := time.Duration(cfg.IdleTimeout) * time.Second
	if idle <= 0 {
		idle = 120 * time.Second
	}
	return &HTTPService{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: httpReadHeaderTimeout,
			IdleTimeout:       idle,
			ErrorLog:          logger.StdLogger(),
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return "http"
}

// Start 监听端口直到 Stop 被调用
func (s *HTTPService) Start(_ context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	logger.Infow("http_listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭，等待进行中的请求完成
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
