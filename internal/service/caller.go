package service

import (
	"strings"

	"github.com/courier-next/internal/constants"
)

// Caller 已认证的调用方，由鉴权中间件从 JWT 中解出
type Caller struct {
	ID    uint
	Email string
	Role  string
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool {
	return c.Role == constants.RoleAdmin
}

// NormalizedEmail 小写邮箱
func (c Caller) NormalizedEmail() string {
	return normalizeEmail(c.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requireAdmin(caller Caller) error {
	if caller.ID == 0 {
		return ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
