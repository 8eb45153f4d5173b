package models

import "time"

// AuthzAuditLog 权限策略审计日志
// 说明：记录管理员对角色策略的授予与回收，支持按操作人、角色与时间范围检索。
type AuthzAuditLog struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	OperatorUserID uint      `gorm:"index;not null" json:"operator_user_id"`
	OperatorEmail  string    `gorm:"type:varchar(255);index;not null;default:''" json:"operator_email"`
	Action         string    `gorm:"type:varchar(100);index;not null" json:"action"`
	Role           string    `gorm:"type:varchar(120);index;not null;default:''" json:"role"`
	Object         string    `gorm:"type:varchar(255);index;not null;default:''" json:"object"`
	Method         string    `gorm:"type:varchar(20);index;not null;default:''" json:"method"`
	RequestID      string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON     JSON      `gorm:"type:json" json:"detail"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuthzAuditLog) TableName() string {
	return "authz_audit_logs"
}
