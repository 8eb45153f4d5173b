package worker

import (
	"context"
	"errors"

	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/provider"
	"github.com/courier-next/internal/queue"
	"github.com/courier-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotificationDeliver, c.handleNotificationDeliver)
}

func (c *Consumer) handleNotificationDeliver(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_deliver_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseNotificationDeliverPayload(task)
	if err != nil {
		logger.Warnw("worker_notification_deliver_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	if payload.EventID == 0 {
		logger.Debugw("worker_notification_deliver_skip_invalid_payload", "event_id", payload.EventID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_deliver_skip_service_nil", "event_id", payload.EventID)
		return nil
	}
	if err := c.NotificationService.Deliver(ctx, payload.EventID); err != nil {
		if errors.Is(err, service.ErrNotificationEventInvalid) {
			logger.Warnw("worker_notification_deliver_invalid_event", "event_id", payload.EventID, "error", err)
			return nil
		}
		logger.Warnw("worker_notification_deliver_failed",
			"event_id", payload.EventID,
			"event_type", payload.EventType,
			"error", err,
		)
		return err
	}
	return nil
}
