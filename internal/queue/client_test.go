package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
)

func TestDisabledClientKeepsEventsInOutbox(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	err = client.EnqueueNotification(NotificationDeliverPayload{EventID: 1, EventType: constants.NotificationParcelCreated})
	if !errors.Is(err, ErrQueueDisabled) {
		t.Fatalf("expected ErrQueueDisabled, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
}

func TestNotificationTaskRoundTrip(t *testing.T) {
	task, err := NewNotificationDeliverTask(NotificationDeliverPayload{EventID: 9, EventType: constants.NotificationCredentialsIssued})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskNotificationDeliver {
		t.Fatalf("unexpected task type %s", task.Type())
	}
	payload, err := ParseNotificationDeliverPayload(task)
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.EventID != 9 || payload.EventType != constants.NotificationCredentialsIssued {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if notificationTaskID(9) != "notification-9" {
		t.Fatalf("unexpected task id %s", notificationTaskID(9))
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[CriticalQueue] == 0 {
		t.Fatalf("unexpected server config %+v", cfg)
	}
}

func TestBuildServerConfigFromQueueConfig(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: "redis.internal", Port: 6380, DB: 3, Concurrency: 4, Queues: map[string]int{DefaultQueue: 1}})
	if opt.Addr != "redis.internal:6380" || opt.DB != 3 {
		t.Fatalf("unexpected redis opt %+v", opt)
	}
	if cfg.Concurrency != 4 || len(cfg.Queues) != 1 {
		t.Fatalf("unexpected server config %+v", cfg)
	}
	if cfg.Logger == nil || cfg.ErrorHandler == nil || cfg.RetryDelayFunc == nil {
		t.Fatalf("server config should carry logger, error handler and retry delay")
	}
}

func TestRetryDelay(t *testing.T) {
	cases := []struct {
		n    int
		want time.Duration
	}{
		{n: 0, want: 5 * time.Second},
		{n: 1, want: 10 * time.Second},
		{n: 3, want: 40 * time.Second},
		{n: 7, want: 10 * time.Minute},
		{n: 30, want: 10 * time.Minute},
		{n: -2, want: 5 * time.Second},
	}
	for _, tc := range cases {
		if got := retryDelay(tc.n, nil, nil); got != tc.want {
			t.Fatalf("retry delay n=%d want %s got %s", tc.n, tc.want, got)
		}
	}
}
