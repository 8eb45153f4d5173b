package repository

import (
	"time"

	"github.com/courier-next/internal/constants"
)

// ParcelRequestListFilter 查询寄件申请的过滤条件
type ParcelRequestListFilter struct {
	Page        int
	PageSize    int
	SenderID    uint
	Status      constants.RequestStatus
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ParcelSearchFilter 查询包裹的过滤条件
type ParcelSearchFilter struct {
	Page           int
	PageSize       int
	Status         constants.ParcelStatus
	TrackingNumber string
	Keyword        string
	SenderID       uint
	ReceiverID     uint
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	// VisibleTo 非零时只返回寄件人或收件人为该用户的包裹；VisibleEmail 匹配建档前的收件邮箱
	VisibleTo    uint
	VisibleEmail string
}

// NotificationEventFilter 发件箱查询
type NotificationEventFilter struct {
	Recipient      string
	EventType      constants.NotificationEventType
	Status         string
	TrackingNumber string // 匹配 payload 中的 tracking_number
}

// AuthzAuditLogListFilter 权限审计日志查询
type AuthzAuditLogListFilter struct {
	Page           int
	PageSize       int
	OperatorUserID uint
	Action         string
	Role           string
	Object         string
	Method         string
	Keyword        string // 操作人邮箱、路由或请求 ID 模糊匹配
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}
