package worker

import (
	"context"
	"errors"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	relayInterval time.Duration
	relayBatch    int
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		relayInterval: cfg.Notification.RelayInterval(),
		relayBatch:    cfg.Notification.RelayBatchSize,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.Container != nil && s.consumer.NotificationService != nil {
		go s.runRelayLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runRelayLoop 定期补投提交后未能入队的发件箱事件
func (s *Service) runRelayLoop(ctx context.Context) {
	interval := s.relayInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.relayOnce(interval)
		}
	}
}

func (s *Service) relayOnce(olderThan time.Duration) int {
	if s == nil || s.consumer == nil || s.consumer.Container == nil || s.consumer.NotificationService == nil {
		return 0
	}
	relayed, err := s.consumer.NotificationService.RelayPending(olderThan, s.relayBatch)
	if err != nil {
		logger.Warnw("worker_notification_relay_failed", "error", err)
		return 0
	}
	if relayed > 0 {
		logger.Infow("worker_notification_relayed", "count", relayed)
	}
	return relayed
}
