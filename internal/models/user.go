package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（寄件人、收件人与管理员共用）
type User struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                      // 主键
	Email                 string         `gorm:"uniqueIndex;not null" json:"email"`         // 邮箱（小写）
	PasswordHash          string         `gorm:"not null;default:''" json:"-"`              // 密码哈希
	TempPasswordHash      string         `gorm:"not null;default:''" json:"-"`              // 临时密码哈希
	TempPasswordExpiresAt *time.Time     `gorm:"index" json:"temp_password_expires_at"`     // 临时密码过期时间
	DisplayName           string         `gorm:"default:''" json:"display_name"`            // 昵称
	Role                  string         `gorm:"index;not null;default:'USER'" json:"role"` // 角色 USER/ADMIN
	Locale                string         `gorm:"default:'zh-CN'" json:"locale"`             // 语言偏好
	Status                string         `gorm:"default:'active'" json:"status"`            // 账号状态
	Provisioned           bool           `gorm:"not null;default:false" json:"provisioned"` // 是否由系统代建
	LastLoginAt           *time.Time     `json:"last_login_at"`                             // 最后登录时间
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`                   // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                            // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// HasActiveTempPassword 临时密码是否仍在有效期
func (u *User) HasActiveTempPassword(now time.Time) bool {
	if u == nil || u.TempPasswordHash == "" || u.TempPasswordExpiresAt == nil {
		return false
	}
	return now.Before(*u.TempPasswordExpiresAt)
}
