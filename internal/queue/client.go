package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 账号凭证类通知
	CriticalQueue = constants.QueueCritical

	defaultMaxRetry = 8
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
	maxRetry     int
}

// NewClient 创建队列客户端，未启用时返回空操作客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue, maxRetry: defaultMaxRetry}, nil
	}
	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	return &Client{
		client:       asynq.NewClient(buildRedisOpt(cfg)),
		enabled:      true,
		defaultQueue: DefaultQueue,
		maxRetry:     maxRetry,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueNotification 推送通知投递任务；同一事件重复入队视为成功
func (c *Client) EnqueueNotification(payload NotificationDeliverPayload) error {
	if !c.Enabled() {
		return ErrQueueDisabled
	}
	task, err := NewNotificationDeliverTask(payload)
	if err != nil {
		return err
	}
	queueName := c.defaultQueue
	if payload.EventType == constants.NotificationCredentialsIssued {
		queueName = CriticalQueue
	}
	options := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(c.maxRetry),
		asynq.TaskID(notificationTaskID(payload.EventID)),
		asynq.Retention(24 * time.Hour),
	}
	_, err = c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// ErrQueueDisabled 队列未启用，事件保留在发件箱等待中继
var ErrQueueDisabled = errors.New("queue disabled")

const (
	defaultConcurrency = 10
	minRetryDelay      = 5 * time.Second
	maxRetryDelay      = 10 * time.Minute
)

// BuildServerConfig 生成队列服务配置；失败任务按指数退避重试
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := defaultConcurrency
	queues := map[string]int{DefaultQueue: 1, CriticalQueue: 2}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			queues = cfg.Queues
		}
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency:     concurrency,
		Queues:          queues,
		Logger:          logger.S().With("component", "asynq"),
		RetryDelayFunc:  retryDelay,
		ErrorHandler:    asynq.ErrorHandlerFunc(reportTaskFailure),
		ShutdownTimeout: 8 * time.Second,
	}
}

// retryDelay 第 n 次重试等待 5s*2^n，上限 10 分钟
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 8 {
		return maxRetryDelay
	}
	delay := minRetryDelay << uint(n)
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func reportTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	taskID, _ := asynq.GetTaskID(ctx)
	fields := []interface{}{"task_type", task.Type(), "task_id", taskID, "retried", retried, "max_retry", maxRetry, "error", err}
	if retried >= maxRetry {
		logger.Errorw("queue_task_exhausted", fields...)
		return
	}
	logger.Warnw("queue_task_failed", fields...)
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
