package models

import (
	"time"

	"github.com/courier-next/internal/constants"
)

// NotificationEvent 通知发件箱，与业务写入同事务落库，提交后投递到队列
type NotificationEvent struct {
	ID           uint                            `gorm:"primarykey" json:"id"`
	EventType    constants.NotificationEventType `gorm:"type:varchar(40);index;not null" json:"event_type"`
	Recipient    string                          `gorm:"index;not null" json:"recipient"`               // 收件邮箱
	Locale       string                          `gorm:"not null;default:''" json:"locale"`             // 渲染语言
	Payload      JSON                            `gorm:"type:json" json:"payload"`                      // 模板数据
	SealedSecret string                          `gorm:"type:text;not null;default:''" json:"-"`        // 加密后的敏感数据，投递后清空
	Status       string                          `gorm:"type:varchar(20);index;not null" json:"status"` // pending/queued/delivered/skipped
	Attempts     int                             `gorm:"not null;default:0" json:"attempts"`
	LastError    string                          `gorm:"type:text" json:"last_error"`
	QueuedAt     *time.Time                      `json:"queued_at"`
	DeliveredAt  *time.Time                      `json:"delivered_at"`
	CreatedAt    time.Time                       `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

// TableName 指定表名
func (NotificationEvent) TableName() string {
	return "notification_events"
}
