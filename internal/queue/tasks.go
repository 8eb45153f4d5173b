package queue

import (
	"encoding/json"
	"fmt"

	"github.com/courier-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDeliver 通知投递任务
	TaskNotificationDeliver = constants.TaskNotificationDeliver
)

// NotificationDeliverPayload 通知投递任务载荷，只携带发件箱 ID，内容由消费者回库读取
type NotificationDeliverPayload struct {
	EventID   uint                            `json:"event_id"`
	EventType constants.NotificationEventType `json:"event_type"`
}

// NewNotificationDeliverTask 创建通知投递任务
func NewNotificationDeliverTask(payload NotificationDeliverPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, body), nil
}

// ParseNotificationDeliverPayload 解析任务载荷
func ParseNotificationDeliverPayload(task *asynq.Task) (NotificationDeliverPayload, error) {
	var payload NotificationDeliverPayload
	if task == nil {
		return payload, fmt.Errorf("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// notificationTaskID 同一事件只入队一次
func notificationTaskID(eventID uint) string {
	return fmt.Sprintf("notification-%d", eventID)
}
