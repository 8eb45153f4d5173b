package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/courier-next/internal/config"
)

// HTTPService gin 引擎的 http.Server 封装
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务，超时取自 server 配置
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              cfg.Host + ":" + cfg.Port,
			Handler:           handler,
			ReadHeaderTimeout: msOr(cfg.ReadHeaderTimeoutMS, 5*time.Second),
			ReadTimeout:       msOr(cfg.ReadTimeoutMS, 15*time.Second),
			WriteTimeout:      msOr(cfg.WriteTimeoutMS, 30*time.Second),
			IdleTimeout:       msOr(cfg.IdleTimeoutMS, 60*time.Second),
		},
	}
}

func msOr(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return "http"
}

// Addr 监听地址
func (s *HTTPService) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start 阻塞监听，正常关闭时返回 nil
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭，等待进行中的请求
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
