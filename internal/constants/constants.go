package constants

import "strings"

// 用户角色
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// RequestStatus 寄件申请状态
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// ParseRequestStatus 解析寄件申请状态，未知值返回 false
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	status := RequestStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return status, true
	}
	return "", false
}

// IsTerminal 审批结果不可回退
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// ParcelStatus 包裹状态
type ParcelStatus string

const (
	ParcelStatusPending   ParcelStatus = "PENDING"
	ParcelStatusPickedUp  ParcelStatus = "PICKED_UP"
	ParcelStatusInTransit ParcelStatus = "IN_TRANSIT"
	ParcelStatusDelivered ParcelStatus = "DELIVERED"
	ParcelStatusReceived  ParcelStatus = "RECEIVED"
	ParcelStatusCancelled ParcelStatus = "CANCELLED"
)

// ParcelStatuses 全部包裹状态（按生命周期顺序）
var ParcelStatuses = []ParcelStatus{
	ParcelStatusPending,
	ParcelStatusPickedUp,
	ParcelStatusInTransit,
	ParcelStatusDelivered,
	ParcelStatusReceived,
	ParcelStatusCancelled,
}

// ParseParcelStatus 解析包裹状态，未知值返回 false
func ParseParcelStatus(raw string) (ParcelStatus, bool) {
	status := ParcelStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range ParcelStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

// IsTerminal 已签收与已取消为终态
func (s ParcelStatus) IsTerminal() bool {
	return s == ParcelStatusReceived || s == ParcelStatusCancelled
}

// HasArrived 已送达或已签收
func (s ParcelStatus) HasArrived() bool {
	return s == ParcelStatusDelivered || s == ParcelStatusReceived
}

// 支付状态
const (
	PaymentStatusCompleted = "COMPLETED"
)

// 支付方式
const (
	PaymentMethodOnDelivery = "ON_DELIVERY"
)

// NotificationEventType 通知事件类型
type NotificationEventType string

const (
	NotificationNewRequest        NotificationEventType = "new_request"
	NotificationRequestStatus     NotificationEventType = "request_status_changed"
	NotificationRequestRejected   NotificationEventType = "request_rejected"
	NotificationParcelCreated     NotificationEventType = "parcel_created"
	NotificationParcelStatus      NotificationEventType = "parcel_status_changed"
	NotificationCredentialsIssued NotificationEventType = "credentials_issued"
)

// 发件箱状态
const (
	NotificationEventStatusPending  = "pending"
	NotificationEventStatusQueued   = "queued"
	NotificationEventStatusSent     = "delivered"
	NotificationEventStatusSkipped  = "skipped"
	NotificationEventMaxErrorLength = 500
)

// 邮件驱动
const (
	EmailDriverSMTP = "smtp"
	EmailDriverSES  = "ses"
)

// 地理编码服务商
const (
	GeoProviderGoogle = "google"
	GeoProviderNone   = "none"
)

// 鉴权上下文键
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"
)

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// 队列与任务
const (
	QueueDefault            = "default"
	QueueCritical           = "critical"
	TaskNotificationDeliver = "notification:deliver"
)
