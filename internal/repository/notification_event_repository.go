package repository

import (
	"strings"
	"time"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/models"

	"gorm.io/gorm"
)

// NotificationEventRepository 通知发件箱
type NotificationEventRepository interface {
	WithTx(tx *gorm.DB) NotificationEventRepository

	CreateBatch(events []*models.NotificationEvent) error
	GetByID(id uint) (*models.NotificationEvent, error)
	List(filter NotificationEventFilter) ([]models.NotificationEvent, error)
	ListPending(createdBefore time.Time, limit int) ([]models.NotificationEvent, error)
	MarkQueued(ids []uint, at time.Time) error
	MarkDelivered(id uint, at time.Time) error
	MarkSkipped(id uint, reason string, at time.Time) error
	RecordFailure(id uint, reason string, at time.Time) error
}

// GormNotificationEventRepository GORM 实现
type GormNotificationEventRepository struct {
	db *gorm.DB
}

// NewNotificationEventRepository 创建发件箱仓库
func NewNotificationEventRepository(db *gorm.DB) *GormNotificationEventRepository {
	return &GormNotificationEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormNotificationEventRepository) WithTx(tx *gorm.DB) NotificationEventRepository {
	if tx == nil {
		return r
	}
	return &GormNotificationEventRepository{db: tx}
}

// CreateBatch 批量写入
func (r *GormNotificationEventRepository) CreateBatch(events []*models.NotificationEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.Create(events).Error
}

// GetByID 获取事件
func (r *GormNotificationEventRepository) GetByID(id uint) (*models.NotificationEvent, error) {
	var event models.NotificationEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, ignoreNotFound(err)
	}
	return &event, nil
}

// List 按条件列出
func (r *GormNotificationEventRepository) List(filter NotificationEventFilter) ([]models.NotificationEvent, error) {
	query := r.db.Model(&models.NotificationEvent{})
	if filter.Recipient != "" {
		query = query.Where("recipient = ?", filter.Recipient)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if tn := strings.ToUpper(strings.TrimSpace(filter.TrackingNumber)); tn != "" {
		query = query.Where(jsonTextExpr(r.db, "payload", "tracking_number")+" = ?", tn)
	}
	var rows []models.NotificationEvent
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPending 列出提交后未能入队的事件
func (r *GormNotificationEventRepository) ListPending(createdBefore time.Time, limit int) ([]models.NotificationEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.NotificationEvent
	if err := r.db.Where("status = ? AND created_at <= ?", constants.NotificationEventStatusPending, createdBefore).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkQueued 标记已入队
func (r *GormNotificationEventRepository) MarkQueued(ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.NotificationEvent{}).
		Where("id IN ? AND status = ?", ids, constants.NotificationEventStatusPending).
		Updates(map[string]interface{}{
			"status":     constants.NotificationEventStatusQueued,
			"queued_at":  at,
			"updated_at": at,
		}).Error
}

// MarkDelivered 标记已投递并清除密文
func (r *GormNotificationEventRepository) MarkDelivered(id uint, at time.Time) error {
	return r.db.Model(&models.NotificationEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        constants.NotificationEventStatusSent,
			"sealed_secret": "",
			"delivered_at":  at,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    "",
			"updated_at":    at,
		}).Error
}

// MarkSkipped 标记跳过（例如邮件未启用）
func (r *GormNotificationEventRepository) MarkSkipped(id uint, reason string, at time.Time) error {
	return r.db.Model(&models.NotificationEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        constants.NotificationEventStatusSkipped,
			"sealed_secret": "",
			"last_error":    truncate(reason, constants.NotificationEventMaxErrorLength),
			"updated_at":    at,
		}).Error
}

// RecordFailure 记录一次投递失败
func (r *GormNotificationEventRepository) RecordFailure(id uint, reason string, at time.Time) error {
	return r.db.Model(&models.NotificationEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": truncate(reason, constants.NotificationEventMaxErrorLength),
			"updated_at": at,
		}).Error
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
